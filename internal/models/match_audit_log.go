package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditReset       = "reset"
	AuditLedgerClear = "ledger_clear"
	AuditLink        = "link"
)

type MatchAuditLog struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Scope                   string     `gorm:"index" json:"scope"`
	CustomerTransactionID   *uuid.UUID `gorm:"type:uuid;index" json:"customer_transaction_id,omitempty"`
	Action                  string     `json:"action"`
	PreviousBankTransaction *uuid.UUID `gorm:"type:uuid" json:"previous_bank_transaction,omitempty"`
	NewBankTransaction      *uuid.UUID `gorm:"type:uuid" json:"new_bank_transaction,omitempty"`
	AffectedRows            int64      `json:"affected_rows"`
	PerformedBy             string     `json:"performed_by"`
	Reason                  string     `json:"reason"`
	CreatedAt               time.Time  `json:"created_at"`
}
