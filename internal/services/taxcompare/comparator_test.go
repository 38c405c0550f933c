package taxcompare

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/services/matching"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func taxRows(amounts ...string) []models.CustomerTaxRow {
	rows := make([]models.CustomerTaxRow, 0, len(amounts))
	for _, a := range amounts {
		rows = append(rows, models.CustomerTaxRow{ID: uuid.New(), TaxType: "VAT", TaxAmount: dec(a)})
	}
	return rows
}

func testPair() matching.Pair {
	return matching.Pair{
		Bank:     models.BankTransaction{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001")},
		Customer: models.CustomerTransaction{ID: uuid.MustParse("00000000-0000-0000-0000-000000000101")},
		Method:   models.MatchByReference,
	}
}

func TestCompare_Classification(t *testing.T) {
	tests := []struct {
		name     string
		rows     []models.CustomerTaxRow
		bankTax  decimal.NullDecimal
		expected models.ComparisonStatus
	}{
		{"sum equals bank tax", taxRows("12.50", "2.50"), decimal.NewNullDecimal(dec("15.00")), models.StatusMatch},
		{"sum differs", taxRows("12.50", "2.50"), decimal.NewNullDecimal(dec("14.00")), models.StatusMismatch},
		{"no bank figure", taxRows("12.50", "2.50"), decimal.NullDecimal{}, models.StatusMissing},
		{"no tax rows", nil, decimal.NewNullDecimal(dec("15.00")), models.StatusMissing},
		{"rows summing to zero", taxRows("5", "-5"), decimal.NewNullDecimal(decimal.Zero), models.StatusMatch},
	}

	c := NewComparator(decimal.Zero)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Compare("agency-1", testPair(), tt.rows, tt.bankTax)
			assert.Equal(t, tt.expected, result.Status)
			assert.True(t, result.Status.Valid())
		})
	}
}

func TestCompare_RecordsBothSides(t *testing.T) {
	c := NewComparator(decimal.Zero)
	pair := testPair()

	result := c.Compare("agency-1", pair, taxRows("12.50", "2.50"), decimal.NewNullDecimal(dec("14.00")))

	assert.Equal(t, models.ComparisonID("agency-1", pair.Bank.ID, pair.Customer.ID), result.ID)
	assert.Equal(t, pair.Bank.ID, result.BankTransactionID)
	assert.Equal(t, pair.Customer.ID, result.CustomerTransactionID)
	assert.Equal(t, models.MatchByReference, result.MatchMethod)
	require.True(t, result.CustomerTax.Valid)
	assert.True(t, result.CustomerTax.Decimal.Equal(dec("15")))
	require.True(t, result.Difference.Valid)
	assert.True(t, result.Difference.Decimal.Equal(dec("1")))
}

func TestCompare_MissingKeepsAvailableSide(t *testing.T) {
	c := NewComparator(decimal.Zero)

	result := c.Compare("agency-1", testPair(), taxRows("3.10"), decimal.NullDecimal{})

	assert.Equal(t, models.StatusMissing, result.Status)
	assert.True(t, result.CustomerTax.Valid)
	assert.False(t, result.BankTax.Valid)
	assert.False(t, result.Difference.Valid)
}

func TestCompare_DecimalSummation(t *testing.T) {
	c := NewComparator(decimal.Zero)
	rows := taxRows("0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1")

	result := c.Compare("agency-1", testPair(), rows, decimal.NewNullDecimal(dec("1.00")))

	assert.Equal(t, models.StatusMatch, result.Status)
}

func TestCompare_Tolerance(t *testing.T) {
	c := NewComparator(dec("0.01"))

	assert.Equal(t, models.StatusMatch, c.Compare("s", testPair(), taxRows("10.00"), decimal.NewNullDecimal(dec("10.01"))).Status)
	assert.Equal(t, models.StatusMismatch, c.Compare("s", testPair(), taxRows("10.00"), decimal.NewNullDecimal(dec("10.02"))).Status)

	negative := NewComparator(dec("-1"))
	assert.Equal(t, models.StatusMismatch, negative.Compare("s", testPair(), taxRows("10.00"), decimal.NewNullDecimal(dec("10.01"))).Status)
}

func TestComparePairsAndSummarize(t *testing.T) {
	c := NewComparator(decimal.Zero)
	matched := testPair()
	matched.Customer.TaxRows = taxRows("15")
	matched.Bank.ReportedTax = decimal.NewNullDecimal(dec("15"))

	missing := testPair()
	missing.Bank.ID = uuid.New()
	missing.Customer.ID = uuid.New()

	results := c.ComparePairs("agency-1", []matching.Pair{matched, missing})

	require.Len(t, results, 2)
	assert.Equal(t, models.ComparisonSummary{Match: 1, Missing: 1}, Summarize(results))
	assert.Equal(t, 2, Summarize(results).Total())
}
