package models

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	errBothSides    = errors.New("debit and credit are mutually exclusive")
	errNoSide       = errors.New("one of debit or credit is required")
	errNegativeSide = errors.New("debit and credit must not be negative")
)

func ValidateScope(scope string) error {
	return validation.Validate(scope,
		validation.Required,
		validation.Length(1, 128),
		validation.By(func(value interface{}) error {
			if strings.TrimSpace(value.(string)) != value.(string) {
				return errors.New("must not have surrounding spaces")
			}
			return nil
		}),
	)
}

func requiredUUID(value interface{}) error {
	if id, _ := value.(uuid.UUID); id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
}

func exclusiveSides(debit, credit decimal.NullDecimal) validation.RuleFunc {
	return func(interface{}) error {
		if (debit.Valid && debit.Decimal.IsNegative()) || (credit.Valid && credit.Decimal.IsNegative()) {
			return errNegativeSide
		}
		hasDebit := debit.Valid && !debit.Decimal.IsZero()
		hasCredit := credit.Valid && !credit.Decimal.IsZero()
		switch {
		case hasDebit && hasCredit:
			return errBothSides
		case !hasDebit && !hasCredit:
			return errNoSide
		}
		return nil
	}
}

func (t BankTransaction) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.By(requiredUUID)),
		validation.Field(&t.Scope, validation.Required),
		validation.Field(&t.OperationDate, validation.Required),
		validation.Field(&t.Debit, validation.By(exclusiveSides(t.Debit, t.Credit))),
	)
}

func (t CustomerTransaction) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.By(requiredUUID)),
		validation.Field(&t.Scope, validation.Required),
		validation.Field(&t.AccountingDate, validation.Required),
		validation.Field(&t.Debit, validation.By(exclusiveSides(t.Debit, t.Credit))),
		validation.Field(&t.TaxRows),
	)
}

func (r CustomerTaxRow) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaxType, validation.Required),
	)
}
