package normalizer

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ExtractAmount pulls a decimal amount out of a token that may carry currency
// symbols and thousands separators, such as "₹500", "$1,000" or "€100.50".
// Everything except digits, '.' and '-' is stripped before parsing.
// Unparseable or empty input yields zero, not an error: rows with a zero
// amount are filtered out later during entry normalization.
func ExtractAmount(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)

	if cleaned == "" {
		return decimal.Zero
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// ContainsDigit reports whether the token carries at least one digit. The
// line parser uses this as a cheap "could be an amount" test.
func ContainsDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}
