package ledger

import (
	"context"
	"fmt"
	"strconv"
)

// mockStore is an in-memory Store that counts lookups.
type mockStore struct {
	users        map[string]string
	banks        map[string]string
	categories   map[string]string
	transactions []Transaction
	lookups      map[string]int
	insertErr    error
	userErr      error
	closed       bool
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      make(map[string]string),
		banks:      make(map[string]string),
		categories: make(map[string]string),
		lookups:    make(map[string]int),
	}
}

func (m *mockStore) named(table map[string]string, kind, name string) string {
	m.lookups[kind+":"+name]++
	if id, ok := table[name]; ok {
		return id
	}
	id := fmt.Sprintf("%s-%d", kind, len(table)+1)
	table[name] = id
	return id
}

func (m *mockStore) LookupOrCreateUser(_ context.Context, user User) (string, error) {
	if m.userErr != nil {
		return "", m.userErr
	}
	return m.named(m.users, "user", strconv.FormatInt(user.TelegramID, 10)), nil
}

func (m *mockStore) LookupOrCreateBank(_ context.Context, name string) (string, error) {
	return m.named(m.banks, "bank", name), nil
}

func (m *mockStore) LookupOrCreateCategory(_ context.Context, name string) (string, error) {
	return m.named(m.categories, "category", name), nil
}

func (m *mockStore) InsertTransaction(_ context.Context, t *Transaction) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	t.ID = fmt.Sprintf("tx-%d", len(m.transactions)+1)
	m.transactions = append(m.transactions, *t)
	return nil
}

func (m *mockStore) ListBanks(_ context.Context) ([]Bank, error) {
	return []Bank{{ID: "b1", Name: "BCA"}, {ID: "b2", Name: "Mandiri"}}, nil
}

func (m *mockStore) ListCategories(_ context.Context) ([]Category, error) {
	return []Category{{ID: "c1", Name: "food"}}, nil
}

func (m *mockStore) RecentTransactions(_ context.Context, userID string, limit int) ([]TransactionView, error) {
	views := make([]TransactionView, 0)
	for _, t := range m.transactions {
		if t.UserID == userID {
			views = append(views, TransactionView{Transaction: t})
		}
	}
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (m *mockStore) Summarize(_ context.Context, userID string) (Summary, error) {
	var s Summary
	for _, t := range m.transactions {
		if t.UserID == userID {
			s.Add(t.Kind, t.Amount)
		}
	}
	return s, nil
}

func (m *mockStore) Close() error {
	m.closed = true
	return nil
}
