// Package numeric parses and formats the decimal numbers typed by users.
// Both '.' and ',' are accepted as decimal separator.
package numeric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// No exponents and no thousands separators: "1.000,5" is rejected instead of being guessed.
var numberRe = regexp.MustCompile(`^[+-]?(\d+[.,]?\d*|[.,]\d+)$`)

// Parse parses s as a decimal number with either '.' or ',' as decimal separator.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !numberRe.MatchString(s) {
		return decimal.Zero, fmt.Errorf("numeric: invalid number %q", s)
	}

	s = strings.Replace(s, ",", ".", 1)
	s = strings.TrimSuffix(s, ".")

	sign := ""
	if s[0] == '+' || s[0] == '-' {
		sign, s = s[:1], s[1:]
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	d, err := decimal.NewFromString(sign + s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("numeric: parse %q: %w", s, err)
	}

	return d, nil
}

// Format renders d without trailing zeros, using ',' as decimal separator.
func Format(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", ",", 1)
}

// FormatMillis renders a duration in milliseconds as seconds, e.g. 12500 as "12,5".
func FormatMillis(ms int64) string {
	return Format(decimal.New(ms, -3))
}
