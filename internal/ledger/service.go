package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zombor/ledger-bot/internal/datetime"
)

// Service commits drafts and reads a user's history through a Store.
type Service struct {
	store      Store
	dates      *datetime.Normalizer
	timeSource TimeSource
}

// NewService creates a new Service with the default time source
func NewService(store Store, dates *datetime.Normalizer) *Service {
	return NewServiceWithDeps(store, dates, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store Store, dates *datetime.Normalizer, timeSrc TimeSource) *Service {
	return &Service{store: store, dates: dates, timeSource: timeSrc}
}

// Commit resolves the user, bank and category ids and inserts the draft.
// An unset occurredAt becomes the current time.
func (s *Service) Commit(ctx context.Context, user User, draft Draft) (*TransactionView, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if draft.OccurredAt == "" {
		draft.OccurredAt = s.dates.NowString()
	}

	userID, err := s.store.LookupOrCreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	bank := strings.TrimSpace(draft.Bank)
	bankID, err := s.store.LookupOrCreateBank(ctx, bank)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(draft.Category)
	categoryID, err := s.store.LookupOrCreateCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	t := Transaction{
		UserID:      userID,
		BankID:      bankID,
		CategoryID:  categoryID,
		Kind:        draft.Kind,
		Description: strings.TrimSpace(draft.Description),
		Amount:      draft.Amount.Decimal,
		OccurredAt:  draft.OccurredAt,
		CreatedAt:   s.timeSource.Now(),
	}
	if err := s.store.InsertTransaction(ctx, &t); err != nil {
		return nil, err
	}

	slog.Info("transaction committed",
		"id", t.ID,
		"user_id", userID,
		"type", t.Kind,
		"amount", t.Amount.String(),
		"provenance", draft.Provenance)

	return &TransactionView{Transaction: t, BankName: bank, CategoryName: category}, nil
}

// Recent returns the user's latest transactions.
func (s *Service) Recent(ctx context.Context, user User) ([]TransactionView, error) {
	userID, err := s.store.LookupOrCreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.store.RecentTransactions(ctx, userID, RecentLimit)
}

// Summary totals the user's income and outcome.
func (s *Service) Summary(ctx context.Context, user User) (Summary, error) {
	userID, err := s.store.LookupOrCreateUser(ctx, user)
	if err != nil {
		return Summary{}, err
	}
	return s.store.Summarize(ctx, userID)
}

// BankNames returns the known bank names in order.
func (s *Service) BankNames(ctx context.Context) ([]string, error) {
	banks, err := s.store.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing banks: %w", err)
	}
	names := make([]string, 0, len(banks))
	for _, b := range banks {
		names = append(names, b.Name)
	}
	return names, nil
}

// CategoryNames returns the known category names in order.
func (s *Service) CategoryNames(ctx context.Context) ([]string, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names, nil
}
