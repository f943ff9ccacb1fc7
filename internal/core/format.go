package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount the way the accounting reports
// expect it: two decimals, space-separated thousands, fixed SEK
// suffix, right-aligned in a 16 character column plus the suffix.
//
//	1234567.5 -> "    1 234 567.50 SEK"
func FormatCurrency(v decimal.Decimal) string {
	return fmt.Sprintf("%16s SEK", groupThousands(v.StringFixed(2)))
}

// FormatUnits renders a unit count right-aligned, no decimals.
func FormatUnits(v int64) string {
	return fmt.Sprintf("%10s", groupThousands(fmt.Sprintf("%d", v)))
}

// groupThousands inserts a space every three digits of the integer
// part, leaving any sign and fraction untouched.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + fracPart
}
