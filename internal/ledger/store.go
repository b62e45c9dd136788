package ledger

import (
	"context"
	"fmt"
)

// Store is the persistence collaborator. Every lookup-or-create is idempotent for the same natural key.
type Store interface {
	// LookupOrCreateUser returns the id for the user's platform identifier, creating the user if absent.
	LookupOrCreateUser(ctx context.Context, user User) (string, error)

	// LookupOrCreateBank returns the id for a bank name, creating it if absent.
	LookupOrCreateBank(ctx context.Context, name string) (string, error)

	// LookupOrCreateCategory returns the id for a category name, creating it if absent.
	LookupOrCreateCategory(ctx context.Context, name string) (string, error)

	// InsertTransaction stores a transaction and assigns its ID.
	InsertTransaction(ctx context.Context, tx *Transaction) error

	// ListBanks returns all banks ordered by name.
	ListBanks(ctx context.Context) ([]Bank, error)

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]Category, error)

	// RecentTransactions returns a user's transactions, newest occurredAt first.
	RecentTransactions(ctx context.Context, userID string, limit int) ([]TransactionView, error)

	// Summarize totals a user's transactions by kind.
	Summarize(ctx context.Context, userID string) (Summary, error)

	// Close releases the backend.
	Close() error
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
