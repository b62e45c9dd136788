package inline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zombor/ledger-bot/internal/amount"
	"github.com/zombor/ledger-bot/internal/ledger"
)

// ErrUsage is returned when an add command has unknown or missing keys.
var ErrUsage = errors.New("invalid add command")

// AddUsage is shown when an add command cannot be understood.
const AddUsage = "Format salah.\nContoh:\n" +
	`/add bank=BCA category=Gaji type=income amount=5.000.000 desc="Gaji bulan ini" date=2025-10-30`

var addKeys = map[string]bool{
	"bank":             true,
	"category":         true,
	"type":             true,
	"desc":             true,
	"amount":           true,
	"date":             true,
	"transaction_date": true,
}

// IsAddCommand reports whether text is "/add ..." or a bare "add" followed by key=value tokens.
func IsAddCommand(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	head := strings.ToLower(fields[0])
	if i := strings.Index(head, "@"); i > 0 {
		head = head[:i]
	}
	switch head {
	case "/add":
		return true
	case "add":
		return len(fields) > 1 && strings.Contains(fields[1], "=")
	}
	return false
}

// ParseArgs reads key=value tokens after the command word. Keys are lower-cased,
// values keep their case and may be quoted to include spaces.
func ParseArgs(text string) (map[string]string, error) {
	parts, err := Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenizing arguments: %w", ErrUsage, err)
	}
	args := make(map[string]string)
	if len(parts) < 2 {
		return args, nil
	}
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrUsage, part)
		}
		args[strings.ToLower(k)] = v
	}
	return args, nil
}

// ParseAdd builds a complete draft from an add command. Amount and date errors
// wrap amount.ErrInvalidAmount and datetime.ErrInvalidDateTime.
func (p *Parser) ParseAdd(text string) (ledger.Draft, error) {
	args, err := ParseArgs(text)
	if err != nil {
		return ledger.Draft{}, err
	}
	for k := range args {
		if !addKeys[k] {
			return ledger.Draft{}, fmt.Errorf("%w: unknown key %q", ErrUsage, k)
		}
	}

	kind, ok := ledger.ParseKind(args["type"])
	if !ok {
		return ledger.Draft{}, fmt.Errorf("%w: type must be income or outcome", ErrUsage)
	}
	for _, k := range []string{"bank", "category", "desc", "amount"} {
		if strings.TrimSpace(args[k]) == "" {
			return ledger.Draft{}, fmt.Errorf("%w: missing %s", ErrUsage, k)
		}
	}

	value, err := amount.Parse(args["amount"])
	if err != nil {
		return ledger.Draft{}, err
	}

	draft := ledger.Draft{
		Description: ledger.FirstSentence(args["desc"]),
		Kind:        kind,
		Category:    strings.TrimSpace(args["category"]),
		Bank:        strings.TrimSpace(args["bank"]),
		Provenance:  ledger.ProvenanceManual,
	}
	draft.SetAmount(value)

	rawDate := args["date"]
	if rawDate == "" {
		rawDate = args["transaction_date"]
	}
	if rawDate != "" {
		if draft.OccurredAt, err = p.dates.Parse(rawDate); err != nil {
			return ledger.Draft{}, err
		}
	}

	if err := draft.Validate(); err != nil {
		return ledger.Draft{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return draft, nil
}
