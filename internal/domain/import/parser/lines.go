// Package parser turns raw statement text into loosely typed rows.
//
// Statements arrive from arbitrary banks and export tools with no shared
// format, so each line is matched against a cascade of strategies in strict
// priority order: highly specific labeled patterns first, positional guesses
// last. The first strategy that claims a line wins; lines no strategy can
// use are dropped silently.
package parser

import (
	"regexp"
	"strings"

	"github.com/spendtrack/spendtrack/internal/domain/import/normalizer"
)

// Row is a raw parsed record. Keys are whatever the source text carried;
// the entry normalizer maps them onto the canonical schema.
type Row map[string]string

// Canonical row keys emitted by the positional strategies.
const (
	keyDate        = "date"
	keyDescription = "description"
	keyCategory    = "category"
	keyType        = "type"
	keyAmount      = "amount"
)

var (
	// fullyLabeledRe checks that all five field labels appear on one line.
	fullyLabeledRe = regexp.MustCompile(`(?i)date[:=].*description[:=].*category[:=].*type[:=].*amount[:=]`)

	// labelRe finds "key=" / "key:" markers; values run between markers.
	// Keys are single words so that multi-word values never swallow the
	// following label.
	labelRe = regexp.MustCompile(`([A-Za-z]+)[=:]`)

	// labeledFieldRe matches a line that starts with a "key: value" pair.
	labeledFieldRe = regexp.MustCompile(`^[A-Za-z]+[=:]\s*\S`)

	// delimiterRe splits table-ish lines on commas, tabs or column gaps.
	delimiterRe = regexp.MustCompile(`,|\t|\s{2,}`)
)

// ParseLines parses free statement text into rows, one or more lines per
// record. Output order matches input line order.
func ParseLines(text string) []Row {
	var rows []Row
	var pending Row // labeled multi-line record in progress

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}

		if row, ok := parseFullyLabeled(line); ok {
			rows = append(rows, row)
			continue
		}

		if pairs, ok := parseLabeledFields(line); ok {
			if pending == nil {
				pending = Row{}
			}
			flush := false
			for _, p := range pairs {
				pending[p.key] = p.value
				// Amount is the terminal field of a labeled record: flush
				// as soon as it appears, complete or not. Incomplete
				// records are defaulted or dropped during entry
				// normalization.
				if p.key == keyAmount {
					flush = true
				}
			}
			if flush {
				rows = append(rows, pending)
				pending = nil
			}
			continue
		}

		if row, ok := parseSpaceSeparated(line); ok {
			rows = append(rows, row)
			continue
		}

		if row, ok := parseJumbled(line); ok {
			rows = append(rows, row)
			continue
		}

		if row, ok := parseDelimited(line); ok {
			rows = append(rows, row)
			continue
		}
		// No strategy claimed the line: drop it.
	}

	return rows
}

// parseFullyLabeled handles lines carrying all five fields as key=value or
// key:value pairs. Accepted only when at least five distinct keys appear.
func parseFullyLabeled(line string) (Row, bool) {
	if !fullyLabeledRe.MatchString(line) {
		return nil, false
	}

	marks := labelRe.FindAllStringSubmatchIndex(line, -1)
	if len(marks) == 0 {
		return nil, false
	}

	row := Row{}
	for i, m := range marks {
		key := strings.ToLower(strings.TrimSpace(line[m[2]:m[3]]))
		end := len(line)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		value := strings.TrimSpace(line[m[1]:end])
		if key != "" && value != "" {
			row[key] = value
		}
	}

	if len(row) < 5 {
		return nil, false
	}
	return row, true
}

type labeledPair struct {
	key   string
	value string
}

// parseLabeledFields matches a line of "key: value" pairs for the
// multi-line accumulation strategy. The line must open with a label;
// usually it carries a single pair, but every pair present is captured.
func parseLabeledFields(line string) ([]labeledPair, bool) {
	if !labeledFieldRe.MatchString(line) {
		return nil, false
	}

	marks := labelRe.FindAllStringSubmatchIndex(line, -1)
	pairs := make([]labeledPair, 0, len(marks))
	for i, m := range marks {
		key := strings.ToLower(line[m[2]:m[3]])
		end := len(line)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		value := strings.TrimSpace(line[m[1]:end])
		if value != "" {
			pairs = append(pairs, labeledPair{key: key, value: value})
		}
	}

	if len(pairs) == 0 {
		return nil, false
	}
	return pairs, true
}

// parseSpaceSeparated handles plain space-separated lines with a multi-word
// description, e.g. "2024-01-05 Grocery Shopping Food expense 450". Requires
// at least five tokens, a leading date and a trailing token with a digit;
// the trailing three tokens are category, type and amount.
func parseSpaceSeparated(line string) (Row, bool) {
	tokens := strings.Fields(line)
	if len(tokens) < 5 {
		return nil, false
	}
	if !normalizer.IsDate(tokens[0]) {
		return nil, false
	}
	last := tokens[len(tokens)-1]
	if !normalizer.ContainsDigit(last) {
		return nil, false
	}

	return Row{
		keyDate:        tokens[0],
		keyDescription: strings.Join(tokens[1:len(tokens)-3], " "),
		keyCategory:    tokens[len(tokens)-3],
		keyType:        normalizer.CanonicalType(tokens[len(tokens)-2]),
		keyAmount:      normalizer.ExtractAmount(last).String(),
	}, true
}

// parseJumbled guesses field positions on a line with exactly five tokens.
// Each token is assigned to the first unfilled slot it can satisfy, in token
// order; the line is accepted only when every slot ends up filled.
func parseJumbled(line string) (Row, bool) {
	tokens := strings.Fields(line)
	if len(tokens) != 5 {
		return nil, false
	}

	var date, description, category, entryType, amount string
	for _, token := range tokens {
		switch {
		case date == "" && normalizer.IsDate(token):
			t, _ := normalizer.ParseFlexibleDate(token)
			date = normalizer.FormatDate(t)
		case amount == "" && normalizer.ContainsDigit(token):
			if v := normalizer.ExtractAmount(token); !v.IsZero() {
				amount = v.String()
			}
		case entryType == "" && normalizer.IsTypeKeyword(token):
			entryType = normalizer.CanonicalType(token)
		case category == "":
			category = token
		case description == "":
			description = token
		}
	}

	if date == "" || description == "" || category == "" || entryType == "" || amount == "" {
		return nil, false
	}
	return Row{
		keyDate:        date,
		keyDescription: description,
		keyCategory:    category,
		keyType:        entryType,
		keyAmount:      amount,
	}, true
}

// parseDelimited is the last resort: split on commas, tabs or runs of two or
// more spaces and take the first five parts positionally.
func parseDelimited(line string) (Row, bool) {
	var parts []string
	for _, p := range delimiterRe.Split(line, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 5 {
		return nil, false
	}

	return Row{
		keyDate:        parts[0],
		keyDescription: parts[1],
		keyCategory:    parts[2],
		keyType:        normalizer.CanonicalType(parts[3]),
		keyAmount:      normalizer.ExtractAmount(parts[4]).String(),
	}, true
}
