package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/ledger-bot/internal/amount"
	"github.com/zombor/ledger-bot/internal/ledger"
)

var (
	currencyAmountRe = regexp.MustCompile(`(?i)(?:IDR|Rp)\s*([0-9][0-9.,\t \x{00A0}\x{202F}]{1,})`)
	numericTokenRe   = regexp.MustCompile(`[0-9][0-9.,]{2,}`)
	numericLineRe    = regexp.MustCompile(`^[0-9\s\-:./,]+$`)
)

// currencyMarkers are the word-level tokens that precede an amount.
var currencyMarkers = map[string]bool{"IDR": true, "RP": true}

// maxAmountWords bounds how many words after a currency marker are joined.
const maxAmountWords = 5

// genericAmount prefers a currency-marked number, then the largest number with a separator.
// Numbers without separators are taken to be reference numbers.
func genericAmount(text string) (decimal.Decimal, bool) {
	for _, m := range currencyAmountRe.FindAllStringSubmatch(text, -1) {
		if v, err := amount.ParseOCR(m[1]); err == nil && v.IsPositive() {
			return v, true
		}
	}
	return largestSeparated(numericTokenRe.FindAllString(text, -1))
}

func largestSeparated(tokens []string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, tok := range tokens {
		if !strings.ContainsAny(tok, ".,") {
			continue
		}
		v, err := amount.ParseOCR(tok)
		if err != nil || !v.IsPositive() {
			continue
		}
		if !found || v.GreaterThan(best) {
			best, found = v, true
		}
	}
	return best, found
}

// pickDescription returns the first line that is not purely numeric, reduced to its first sentence.
func pickDescription(text string) string {
	for _, ln := range strings.Split(text, "\n") {
		s := strings.TrimSpace(ln)
		if len(s) >= ledger.MinDescriptionLength && !numericLineRe.MatchString(s) {
			return ledger.FirstSentence(s)
		}
	}
	return ledger.FirstSentence(text)
}

// AmountFromWords finds an amount in word-level recognition output: the words
// after a currency marker first, then the largest separator-bearing word.
func AmountFromWords(words []string) (decimal.Decimal, bool) {
	for i, w := range words {
		if !currencyMarkers[strings.ToUpper(strings.TrimSpace(w))] {
			continue
		}
		var buf []string
		for _, next := range words[i+1 : min(len(words), i+1+maxAmountWords)] {
			if s := strings.TrimSpace(next); s != "" {
				buf = append(buf, s)
			}
		}
		if v, err := amount.ParseOCR(strings.Join(buf, " ")); err == nil && v.IsPositive() {
			return v, true
		}
	}

	trimmed := make([]string, 0, len(words))
	for _, w := range words {
		trimmed = append(trimmed, strings.TrimSpace(w))
	}
	return largestSeparated(trimmed)
}
