// Package ledger holds the transaction model and its persistence backends.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingRequiredField is returned when a draft is committed before every slot is filled.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrPersistence wraps every storage backend failure.
	ErrPersistence = errors.New("persistence failure")
)

// RecentLimit is the number of transactions shown by the history listing.
const RecentLimit = 10

// MinDescriptionLength is the shortest accepted description.
const MinDescriptionLength = 3

// Kind is the transaction direction.
type Kind string

const (
	KindIncome  Kind = "income"
	KindOutcome Kind = "outcome"
)

// ParseKind accepts the kind keywords case-insensitively.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, true
	case KindOutcome:
		return KindOutcome, true
	}
	return "", false
}

// Provenance records how a draft was started.
type Provenance string

const (
	ProvenanceManual Provenance = "manual"
	ProvenanceInline Provenance = "inline"
	ProvenanceOCR    Provenance = "ocr"
)

// Draft is a transaction accumulated across one conversation.
type Draft struct {
	Description string              `json:"description,omitempty"`
	Amount      decimal.NullDecimal `json:"amount"`
	Kind        Kind                `json:"kind,omitempty"`
	OccurredAt  string              `json:"occurred_at,omitempty"` // canonical local timestamp
	Category    string              `json:"category,omitempty"`
	Bank        string              `json:"bank,omitempty"`
	Provenance  Provenance          `json:"provenance"`
}

// SetAmount stores d as the draft amount.
func (d *Draft) SetAmount(amount decimal.Decimal) {
	d.Amount = decimal.NewNullDecimal(amount)
}

// Validate reports the first missing or malformed slot.
func (d Draft) Validate() error {
	switch {
	case len(strings.TrimSpace(d.Description)) < MinDescriptionLength:
		return fmt.Errorf("%w: description", ErrMissingRequiredField)
	case !d.Amount.Valid || !d.Amount.Decimal.IsPositive():
		return fmt.Errorf("%w: amount", ErrMissingRequiredField)
	case d.Kind != KindIncome && d.Kind != KindOutcome:
		return fmt.Errorf("%w: kind", ErrMissingRequiredField)
	case strings.TrimSpace(d.Category) == "":
		return fmt.Errorf("%w: category", ErrMissingRequiredField)
	case strings.TrimSpace(d.Bank) == "":
		return fmt.Errorf("%w: bank", ErrMissingRequiredField)
	}
	return nil
}

// User is the chat platform user a transaction belongs to.
type User struct {
	ID         string `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
}

// Bank is a named account or payment source.
type Bank struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is a named spending or income bucket.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Transaction is a committed record.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	BankID      string          `json:"bank_id"`
	CategoryID  string          `json:"category_id"`
	Kind        Kind            `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  string          `json:"transaction_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionView is a transaction joined with its bank and category names.
type TransactionView struct {
	Transaction
	BankName     string `json:"bank_name"`
	CategoryName string `json:"category_name"`
}

// Summary totals a user's transactions by kind.
type Summary struct {
	Income  decimal.Decimal
	Outcome decimal.Decimal
}

// Balance is income minus outcome.
func (s Summary) Balance() decimal.Decimal {
	return s.Income.Sub(s.Outcome)
}

// Add accumulates one transaction into the summary.
func (s *Summary) Add(kind Kind, amount decimal.Decimal) {
	switch kind {
	case KindIncome:
		s.Income = s.Income.Add(amount)
	case KindOutcome:
		s.Outcome = s.Outcome.Add(amount)
	}
}

// FirstSentence trims text to the part before the earliest '.', '!', '?' or newline.
func FirstSentence(text string) string {
	s := strings.TrimSpace(text)
	if i := strings.IndexAny(s, ".!?\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
