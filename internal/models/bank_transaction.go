package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BankTransaction struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Scope             string              `gorm:"index;not null" json:"scope"`
	BatchID           uuid.UUID           `gorm:"type:uuid;index" json:"batch_id"`
	OperationDate     time.Time           `gorm:"column:operation_date" json:"operation_date"`
	ValueDate         *time.Time          `gorm:"column:value_date" json:"value_date,omitempty"`
	Label             string              `json:"label"`
	Debit             decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"debit"`
	Credit            decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"credit"`
	Amount            decimal.Decimal     `gorm:"type:numeric(20,4);index" json:"amount"`
	DocumentReference string              `gorm:"index" json:"document_reference,omitempty"`
	PaymentCode       string              `json:"payment_code,omitempty"`
	PaymentCategory   string              `json:"payment_category,omitempty"`
	AccountingAccount string              `json:"accounting_account,omitempty"`
	ReportedTax       decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"reported_tax"`
	CreatedAt         time.Time           `json:"created_at"`
}

// DeriveAmount sets Amount from the statement's point of view: credits are
// money coming into the account.
func (t *BankTransaction) DeriveAmount() {
	t.Amount = valueOf(t.Credit).Sub(valueOf(t.Debit))
}

// MatchDate is the date compared against the customer accounting date. It is
// the value date, or the operation date when the bank did not report one.
func (t BankTransaction) MatchDate() time.Time {
	if t.ValueDate != nil && !t.ValueDate.IsZero() {
		return *t.ValueDate
	}
	return t.OperationDate
}
