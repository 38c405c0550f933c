// Package taxcompare checks the tax of each matched pair: the sum of the
// customer's tax rows against the tax the bank reported.
package taxcompare

import (
	"github.com/shopspring/decimal"

	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/services/matching"
)

type Comparator struct {
	tolerance decimal.Decimal
}

// NewComparator builds a comparator accepting differences up to tolerance.
// A negative tolerance is treated as zero.
func NewComparator(tolerance decimal.Decimal) *Comparator {
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}
	return &Comparator{tolerance: tolerance}
}

// Compare classifies one matched pair. rows are the customer transaction's tax
// rows and bankTax is the figure reported on the bank side.
func (c *Comparator) Compare(scope string, pair matching.Pair, rows []models.CustomerTaxRow, bankTax decimal.NullDecimal) models.ComparisonResult {
	result := models.ComparisonResult{
		ID:                    models.ComparisonID(scope, pair.Bank.ID, pair.Customer.ID),
		Scope:                 scope,
		BankTransactionID:     pair.Bank.ID,
		CustomerTransactionID: pair.Customer.ID,
		BankTax:               bankTax,
		MatchMethod:           pair.Method,
	}

	total, ok := models.SumTaxRows(rows)
	if ok {
		result.CustomerTax = decimal.NewNullDecimal(total)
	}

	if !ok || !bankTax.Valid {
		result.Status = models.StatusMissing
		return result
	}

	diff := total.Sub(bankTax.Decimal)
	result.Difference = decimal.NewNullDecimal(diff)
	if diff.Abs().LessThanOrEqual(c.tolerance) {
		result.Status = models.StatusMatch
	} else {
		result.Status = models.StatusMismatch
	}
	return result
}

// ComparePairs runs Compare over pairs using the tax rows loaded on each
// customer transaction and the tax reported on each bank transaction.
func (c *Comparator) ComparePairs(scope string, pairs []matching.Pair) []models.ComparisonResult {
	results := make([]models.ComparisonResult, 0, len(pairs))
	for _, p := range pairs {
		results = append(results, c.Compare(scope, p, p.Customer.TaxRows, p.Bank.ReportedTax))
	}
	return results
}

func Summarize(results []models.ComparisonResult) models.ComparisonSummary {
	var s models.ComparisonSummary
	for _, r := range results {
		switch r.Status {
		case models.StatusMatch:
			s.Match++
		case models.StatusMismatch:
			s.Mismatch++
		case models.StatusMissing:
			s.Missing++
		}
	}
	return s
}
