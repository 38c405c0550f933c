package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunPartial    RunStatus = "partial"
	RunFailed     RunStatus = "failed"
)

type ReconciliationRun struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Scope                  string         `gorm:"index" json:"scope"`
	PerformedBy            string         `json:"performed_by"`
	Status                 RunStatus      `gorm:"type:varchar(16);index" json:"status"`
	MatchedCount           int            `json:"matched_count"`
	AppliedCount           int            `json:"applied_count"`
	UnmatchedBankCount     int            `json:"unmatched_bank_count"`
	UnmatchedCustomerCount int            `json:"unmatched_customer_count"`
	FailedUpdateCount      int            `json:"failed_update_count"`
	InputErrorCount        int            `json:"input_error_count"`
	Summary                datatypes.JSON `json:"summary"`
	Error                  string         `json:"error,omitempty"`
	StartedAt              time.Time      `json:"started_at"`
	CompletedAt            *time.Time     `json:"completed_at"`
	CreatedAt              time.Time      `json:"created_at"`
}
