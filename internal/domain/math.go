package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision conventions used throughout the calculator. Quantities carry
// three decimal places, share prices and OeKB factors four, and final EUR
// amounts two (FinanzOnline accepts cents only).
const (
	QuantityPrecision = 3
	PricePrecision    = 4
	EuroPrecision     = 2
)

// RoundQuantity rounds a share quantity to 3 decimal places.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPrecision)
}

// RoundPrice rounds a per-share price or factor to 4 decimal places.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PricePrecision)
}

// RoundEuro rounds a EUR amount to cents.
func RoundEuro(d decimal.Decimal) decimal.Decimal {
	return d.Round(EuroPrecision)
}

// ParseEuropeanDecimal parses a number in European format (1.234,56) into a
// decimal. An empty string parses to zero.
func ParseEuropeanDecimal(value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	normalized := strings.ReplaceAll(value, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing decimal %q: %w", value, err)
	}
	return d, nil
}

// FormatEuropeanDecimal renders a decimal with a comma separator. A negative
// precision keeps the value's own exponent.
func FormatEuropeanDecimal(d decimal.Decimal, precision int) string {
	var s string
	if precision < 0 {
		s = d.String()
	} else {
		s = d.StringFixed(int32(precision))
	}
	return strings.ReplaceAll(s, ".", ",")
}
