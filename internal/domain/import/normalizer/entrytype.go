package normalizer

import "strings"

// Transaction type values as persisted.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// typeAliases maps common misspellings and abbreviations seen in OCR output
// and hand-written exports onto the canonical type values.
var typeAliases = map[string]string{
	"exp":    TypeExpense,
	"ex":     TypeExpense,
	"expnse": TypeExpense,
	"inc":    TypeIncome,
	"in":     TypeIncome,
	"incom":  TypeIncome,
}

// CanonicalType lowercases a type token and resolves known aliases. Tokens it
// does not recognize pass through unchanged; the entry normalizer decides
// what to do with them.
func CanonicalType(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := typeAliases[v]; ok {
		return canonical
	}
	return v
}

// IsTypeKeyword reports whether the token names a transaction type, allowing
// for surrounding noise ("(income)", "EXPENSE:").
func IsTypeKeyword(s string) bool {
	v := strings.ToLower(s)
	return strings.Contains(v, TypeIncome) || strings.Contains(v, TypeExpense)
}

// ValidType reports whether the value is one of the canonical type values.
func ValidType(s string) bool {
	return s == TypeIncome || s == TypeExpense
}
