package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CustomerTransaction struct {
	ID                     uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Scope                  string              `gorm:"index;not null" json:"scope"`
	BatchID                uuid.UUID           `gorm:"type:uuid;index" json:"batch_id"`
	AccountNumber          string              `gorm:"index" json:"account_number"`
	AccountingDate         time.Time           `json:"accounting_date"`
	DocumentNumber         string              `gorm:"index" json:"document_number,omitempty"`
	ExternalDocumentNumber string              `gorm:"index" json:"external_document_number,omitempty"`
	Debit                  decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"debit"`
	Credit                 decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"credit"`
	Amount                 decimal.Decimal     `gorm:"type:numeric(20,4);index" json:"amount"`
	DueDate                *time.Time          `json:"due_date,omitempty"`
	PaymentType            string              `json:"payment_type,omitempty"`
	MatchedBankTransaction *uuid.UUID          `gorm:"type:uuid;column:matched_bank_transaction;index" json:"matched_bank_transaction"`
	TaxRows                []CustomerTaxRow    `gorm:"foreignKey:CustomerTransactionID;constraint:OnDelete:CASCADE" json:"tax_rows"`
	CreatedAt              time.Time           `json:"created_at"`
}

type CustomerTaxRow struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerTransactionID uuid.UUID       `gorm:"type:uuid;index;not null" json:"customer_transaction_id"`
	TaxType               string          `json:"tax_type"`
	TaxAmount             decimal.Decimal `gorm:"type:numeric(20,4)" json:"tax_amount"`
}

// DeriveAmount sets Amount from the customer's books for the bank account,
// where a debit is money coming into the account. Both ledgers therefore
// carry the same sign for the same movement of money.
func (t *CustomerTransaction) DeriveAmount() {
	t.Amount = valueOf(t.Debit).Sub(valueOf(t.Credit))
}

// TotalTax sums the tax rows. ok is false when there are no rows at all, which
// is different from rows summing to zero.
func (t CustomerTransaction) TotalTax() (total decimal.Decimal, ok bool) {
	return SumTaxRows(t.TaxRows)
}

func SumTaxRows(rows []CustomerTaxRow) (decimal.Decimal, bool) {
	if len(rows) == 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.TaxAmount)
	}
	return total, true
}

// References returns the non-empty document numbers a bank reference can
// match against.
func (t CustomerTransaction) References() []string {
	var refs []string
	for _, r := range []string{t.DocumentNumber, t.ExternalDocumentNumber} {
		if r = NormalizeReference(r); r != "" {
			refs = append(refs, r)
		}
	}
	return refs
}
