package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// currencyTokens are stripped before numeric parsing. Longer tokens first.
var currencyTokens = []string{"INR", "Rs.", "Rs", "USD", "EUR", "GBP", "₹", "$", "€", "£", "¥"}

var missingTokens = map[string]bool{
	"": true, "-": true, "--": true, "na": true, "n/a": true, "nan": true,
	"null": true, "none": true, "nil": true, "#n/a": true,
}

// IsMissing reports whether a source cell is a placeholder for no value.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseNumber converts a money or quantity cell to a float. Currency
// markers, thousands separators and percent signs are ignored and
// parentheses mark a negative amount.
func ParseNumber(s string) (float64, bool) {
	v := strings.TrimSpace(s)
	if IsMissing(v) {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		v = strings.TrimSuffix(strings.TrimPrefix(v, "("), ")")
		negative = true
	}
	for _, tok := range currencyTokens {
		v = strings.ReplaceAll(v, tok, "")
	}
	v = strings.ReplaceAll(v, "%", "")
	v = strings.TrimSpace(v)
	v = normalizeSeparators(v)

	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// normalizeSeparators removes grouping separators. A lone comma followed by
// one or two digits is read as a decimal comma.
func normalizeSeparators(v string) string {
	v = strings.ReplaceAll(v, " ", "")
	hasComma := strings.Contains(v, ",")
	hasDot := strings.Contains(v, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(v, ",") > strings.LastIndex(v, ".") {
			v = strings.ReplaceAll(v, ".", "")
			return strings.ReplaceAll(v, ",", ".")
		}
		return strings.ReplaceAll(v, ",", "")
	case hasComma:
		if strings.Count(v, ",") == 1 {
			after := v[strings.LastIndex(v, ",")+1:]
			if len(after) > 0 && len(after) <= 2 {
				return strings.ReplaceAll(v, ",", ".")
			}
		}
		return strings.ReplaceAll(v, ",", "")
	}
	return v
}

// dateLayouts are tried in order; month-first precedes day-first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006",
	"01/02/06",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 2 15:04:05 2006",
}

// ParseTime converts a date cell to a time. Bare numbers are rejected so
// amounts and identifiers never pass as dates.
func ParseTime(s string) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if IsMissing(v) || bareNumber(v) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func bareNumber(v string) bool {
	for _, r := range v {
		if !unicode.IsDigit(r) && r != '.' && r != '-' && r != '+' {
			return false
		}
	}
	return strings.Count(v, "-") <= 1
}

// HasCurrency reports whether the cell carries any currency marker.
func HasCurrency(s string) bool {
	for _, tok := range currencyTokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// HasRupee reports whether the cell carries a rupee marker.
func HasRupee(s string) bool {
	return strings.Contains(s, "₹") || strings.Contains(s, "Rs") || strings.Contains(s, "INR")
}

// HasDateSeparator reports whether the cell looks like a separated date.
func HasDateSeparator(s string) bool {
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 4 && (strings.Count(s, "-") >= 2 || strings.Count(s, "/") >= 2 || strings.Count(s, ".") >= 2)
}
