package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ComparisonStatus string

const (
	StatusMatch    ComparisonStatus = "match"
	StatusMismatch ComparisonStatus = "mismatch"
	StatusMissing  ComparisonStatus = "missing"
)

func (s ComparisonStatus) Valid() bool {
	switch s {
	case StatusMatch, StatusMismatch, StatusMissing:
		return true
	}
	return false
}

func ParseComparisonStatus(s string) (ComparisonStatus, error) {
	status := ComparisonStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown comparison status %q", s)
	}
	return status, nil
}

type MatchMethod string

const (
	MatchByReference MatchMethod = "reference"
	MatchByDate      MatchMethod = "date"
)

// ComparisonResult carries no timestamps so that recomputing a scope from the
// same ledgers yields identical rows.
type ComparisonResult struct {
	ID                    uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Scope                 string              `gorm:"index;not null" json:"scope"`
	BankTransactionID     uuid.UUID           `gorm:"type:uuid;index" json:"bank_transaction_id"`
	CustomerTransactionID uuid.UUID           `gorm:"type:uuid;uniqueIndex" json:"customer_transaction_id"`
	BankTax               decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"bank_tax"`
	CustomerTax           decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"customer_tax"`
	Difference            decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"difference"`
	Status                ComparisonStatus    `gorm:"type:varchar(16);index" json:"status"`
	MatchMethod           MatchMethod         `gorm:"type:varchar(16)" json:"match_method"`
}

var comparisonNamespace = uuid.MustParse("6f1d7c52-4b7e-4d55-9a43-0c3f2f7a9e10")

// ComparisonID derives the row id from the pair it describes.
func ComparisonID(scope string, bankID, customerID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(comparisonNamespace, []byte(scope+"|"+bankID.String()+"|"+customerID.String()))
}
