package amount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatRupiah renders d as "Rp 1.234.567" or "Rp 1.234,50" when cents are present.
func FormatRupiah(d decimal.Decimal) string {
	n := d.Round(2)
	sign := ""
	if n.IsNegative() {
		sign = "-"
		n = n.Neg()
	}

	whole := n.Truncate(0)
	cents := n.Sub(whole).Mul(hundred).IntPart()

	out := sign + "Rp " + groupThousands(whole.String())
	if cents == 0 {
		return out
	}
	return out + fmt.Sprintf(",%02d", cents)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
