package models

import "github.com/google/uuid"

type LedgerSide string

const (
	BankSide     LedgerSide = "bank"
	CustomerSide LedgerSide = "customer"
)

// FailedUpdate identifies a match link that could not be written, with enough
// detail to retry just that link.
type FailedUpdate struct {
	CustomerTransactionID uuid.UUID `json:"customer_transaction_id"`
	BankTransactionID     uuid.UUID `json:"bank_transaction_id"`
	Error                 string    `json:"error"`
}

type RecordError struct {
	Side     LedgerSide `json:"side"`
	RecordID uuid.UUID  `json:"record_id"`
	Reason   string     `json:"reason"`
}

type ComparisonSummary struct {
	Match    int `json:"match"`
	Mismatch int `json:"mismatch"`
	Missing  int `json:"missing"`
}

func (s ComparisonSummary) Total() int {
	return s.Match + s.Mismatch + s.Missing
}

// ReconciliationReport is deterministic for a given pair of ledgers: it holds
// no run ids or timestamps, and every list is sorted.
type ReconciliationReport struct {
	Scope                  string            `json:"scope"`
	MatchedCount           int               `json:"matched_count"`
	AppliedCount           int               `json:"applied_count"`
	UnmatchedBankCount     int               `json:"unmatched_bank_count"`
	UnmatchedCustomerCount int               `json:"unmatched_customer_count"`
	UnmatchedBankIDs       []uuid.UUID       `json:"unmatched_bank_ids"`
	UnmatchedCustomerIDs   []uuid.UUID       `json:"unmatched_customer_ids"`
	ComparisonSummary      ComparisonSummary `json:"comparison_summary"`
	InputErrors            []RecordError     `json:"input_errors"`
	FailedUpdates          []FailedUpdate    `json:"failed_updates"`
}
