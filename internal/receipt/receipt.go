// Package receipt pulls transaction fields out of recognized receipt text.
package receipt

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/ledger-bot/internal/ledger"
)

// Fields is a partial extraction result. Unset fields were not found.
type Fields struct {
	Description string
	Amount      decimal.NullDecimal
	Bank        string
	// NotesBlockPresentButEmpty is set when the receipt has a notes section with no content,
	// in which case Description is left unset.
	NotesBlockPresentButEmpty bool
}

// BankDetected reports whether a bank profile matched.
func (f Fields) BankDetected() bool {
	return f.Bank != ""
}

// Extract runs the matching bank profile over text, or only the generic
// heuristics when no bank is recognized.
func Extract(text string) Fields {
	if profile, ok := DetectBank(text); ok {
		return profile.extract(text)
	}

	var f Fields
	if desc := pickDescription(text); len(desc) >= ledger.MinDescriptionLength {
		f.Description = desc
	}
	if v, ok := genericAmount(text); ok {
		f.Amount = decimal.NewNullDecimal(v)
	}
	return f
}

// ExtractWithWords runs Extract and, when the text yields no amount, falls back
// to AmountFromWords over the result of words. words is only called for the
// fallback. The second result reports whether the amount came from words.
func ExtractWithWords(text string, words func() []string) (Fields, bool) {
	f := Extract(text)
	if f.Amount.Valid || words == nil {
		return f, false
	}
	if v, ok := AmountFromWords(words()); ok {
		f.Amount = decimal.NewNullDecimal(v)
		return f, true
	}
	return f, false
}

// DetectBank returns the first profile whose marker appears in text.
func DetectBank(text string) (Profile, bool) {
	upper := strings.ToUpper(text)
	for _, p := range Profiles {
		for _, marker := range p.Markers {
			if strings.Contains(upper, marker) {
				return p, true
			}
		}
	}
	return Profile{}, false
}

// nonEmptyLines returns the trimmed, non-blank lines of text.
func nonEmptyLines(text string) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}
