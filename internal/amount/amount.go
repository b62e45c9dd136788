// Package amount turns noisy human or OCR numeric tokens into exact decimal values.
//
// Comma and dot are both accepted as either a decimal point or a thousands separator;
// which one is meant is decided from their position and the length of the digit groups.
package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when the input does not contain a usable number.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse normalizes s into a decimal value.
func Parse(s string) (decimal.Decimal, error) {
	filtered := filter(s)
	if !strings.ContainsAny(filtered, "0123456789") {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	hasComma := strings.Contains(filtered, ",")
	hasDot := strings.Contains(filtered, ".")

	switch {
	case hasComma && hasDot:
		filtered = resolveMixed(filtered)
	case hasComma:
		filtered = lastAsDecimal(filtered, ",")
	case hasDot:
		filtered = resolveDots(filtered)
	}

	d, err := decimal.NewFromString(filtered)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseOCR parses a photographed amount and rounds toward zero; receipts carry
// whole-currency values.
func ParseOCR(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Truncate(0), nil
}

// filter keeps digits and the two separator characters.
func filter(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveMixed treats whichever separator occurs last as the decimal point.
func resolveMixed(s string) string {
	if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
		return lastAsDecimal(strings.ReplaceAll(s, ".", ""), ",")
	}
	return lastAsDecimal(strings.ReplaceAll(s, ",", ""), ".")
}

// lastAsDecimal keeps only the final sep as the decimal point and drops the others.
func lastAsDecimal(s, sep string) string {
	last := strings.LastIndex(s, sep)
	if last == -1 {
		return s
	}
	return strings.ReplaceAll(s[:last], sep, "") + "." + s[last+1:]
}

func resolveDots(s string) string {
	parts := strings.Split(s, ".")
	if len(parts) == 2 {
		// 20.000 is twenty thousand, 20.5 and 20.0005 are fractions
		if len(parts[1]) == 3 && len(parts[0]) >= 1 {
			return parts[0] + parts[1]
		}
		return s
	}

	last := parts[len(parts)-1]
	if len(last) == 3 && len(parts[0]) >= 1 && len(parts[0]) <= 3 && middleGroupsOK(parts) {
		return strings.Join(parts, "")
	}
	if len(last) == 1 || len(last) == 2 {
		return strings.Join(parts[:len(parts)-1], "") + "." + last
	}
	// Ambiguous layouts such as 12.3456.789 fall back to grouping.
	return strings.Join(parts, "")
}

func middleGroupsOK(parts []string) bool {
	for _, p := range parts[1 : len(parts)-1] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
