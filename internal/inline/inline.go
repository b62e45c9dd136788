// Package inline parses one-line transaction entries and key=value commands.
package inline

import (
	"strings"

	"github.com/google/shlex"

	"github.com/zombor/ledger-bot/internal/amount"
	"github.com/zombor/ledger-bot/internal/datetime"
	"github.com/zombor/ledger-bot/internal/ledger"
)

// Tokenize splits text on whitespace, keeping quoted substrings together.
func Tokenize(text string) ([]string, error) {
	return shlex.Split(text)
}

// Parser turns a single line into a complete draft:
//
//	<description> <income|outcome> <amount> [date] <category> <bank>
type Parser struct {
	dates *datetime.Normalizer
}

// NewParser returns a Parser resolving optional dates with dates.
func NewParser(dates *datetime.Normalizer) *Parser {
	return &Parser{dates: dates}
}

// Parse returns the draft and true when line is a complete entry.
// Any failure is reported as false so the caller can fall back to prompting.
func (p *Parser) Parse(line string) (ledger.Draft, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return ledger.Draft{}, false
	}
	parts, err := Tokenize(raw)
	if err != nil {
		return ledger.Draft{}, false
	}

	k := -1
	var kind ledger.Kind
	for i, part := range parts {
		if found, ok := ledger.ParseKind(part); ok {
			k, kind = i, found
			break
		}
	}
	// description, kind, amount, category and bank at minimum
	if k < 1 || len(parts) < k+4 {
		return ledger.Draft{}, false
	}

	desc := ledger.FirstSentence(strings.Join(parts[:k], " "))
	if len(desc) < ledger.MinDescriptionLength {
		return ledger.Draft{}, false
	}

	value, err := amount.Parse(parts[k+1])
	if err != nil || !value.IsPositive() {
		return ledger.Draft{}, false
	}

	cursor := k + 2
	occurredAt, width := p.leadingDate(parts[cursor:])
	cursor += width

	if cursor+1 >= len(parts) {
		return ledger.Draft{}, false
	}

	draft := ledger.Draft{
		Description: desc,
		Kind:        kind,
		OccurredAt:  occurredAt,
		Category:    parts[cursor],
		Bank:        parts[cursor+1],
		Provenance:  ledger.ProvenanceInline,
	}
	draft.SetAmount(value)
	return draft, true
}

// leadingDate tries a two-token then a one-token date at the head of rest.
// It returns the canonical timestamp and the number of tokens consumed.
func (p *Parser) leadingDate(rest []string) (string, int) {
	if len(rest) >= 2 {
		if ts, err := p.dates.Parse(rest[0] + " " + rest[1]); err == nil {
			return ts, 2
		}
	}
	if len(rest) >= 1 {
		if ts, err := p.dates.Parse(rest[0]); err == nil {
			return ts, 1
		}
	}
	return "", 0
}
