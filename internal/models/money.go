package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

func valueOf(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// AmountKey is the bucket key for exact amount equality. decimal.String drops
// trailing zeros, so 150 and 150.00 share a key.
func AmountKey(d decimal.Decimal) string {
	return d.String()
}

func NormalizeReference(ref string) string {
	return strings.TrimSpace(ref)
}
