package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/ledger-bot/internal/datetime"
)

var (
	usersBucket           = []byte("users")
	usersByTelegramBucket = []byte("users_by_telegram")
	banksBucket           = []byte("banks")
	banksByNameBucket     = []byte("banks_by_name")
	categoriesBucket      = []byte("categories")
	categoriesByName      = []byte("categories_by_name")
	transactionsBucket    = []byte("transactions")

	allBuckets = [][]byte{
		usersBucket, usersByTelegramBucket,
		banksBucket, banksByNameBucket,
		categoriesBucket, categoriesByName,
		transactionsBucket,
	}
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db          *bbolt.DB
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewBoltStore opens or creates the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	return NewBoltStoreWithDeps(path, uuidGenerator{}, defaultTimeSource{})
}

// NewBoltStoreWithDeps opens the database with custom dependencies for testing.
func NewBoltStoreWithDeps(path string, idGen IDGenerator, timeSrc TimeSource) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db, idGenerator: idGen, timeSource: timeSrc}, nil
}

// LookupOrCreateUser implements Store.
func (b *BoltStore) LookupOrCreateUser(_ context.Context, user User) (string, error) {
	var id string
	err := b.db.Update(func(tx *bbolt.Tx) error {
		index := tx.Bucket(usersByTelegramBucket)
		key := []byte(strconv.FormatInt(user.TelegramID, 10))
		if existing := index.Get(key); existing != nil {
			id = string(existing)
			return nil
		}

		user.ID = b.idGenerator.Generate()
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshaling user: %w", err)
		}
		if err := tx.Bucket(usersBucket).Put([]byte(user.ID), data); err != nil {
			return err
		}
		id = user.ID
		return index.Put(key, []byte(user.ID))
	})
	if err != nil {
		return "", persistenceError("lookup or create user", err)
	}
	return id, nil
}

// LookupOrCreateBank implements Store.
func (b *BoltStore) LookupOrCreateBank(_ context.Context, name string) (string, error) {
	id, err := b.lookupOrCreateNamed(banksBucket, banksByNameBucket, name)
	if err != nil {
		return "", persistenceError("lookup or create bank", err)
	}
	return id, nil
}

// LookupOrCreateCategory implements Store.
func (b *BoltStore) LookupOrCreateCategory(_ context.Context, name string) (string, error) {
	id, err := b.lookupOrCreateNamed(categoriesBucket, categoriesByName, name)
	if err != nil {
		return "", persistenceError("lookup or create category", err)
	}
	return id, nil
}

// namedRecord is the stored shape of banks and categories.
type namedRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (b *BoltStore) lookupOrCreateNamed(bucket, index []byte, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name", ErrMissingRequiredField)
	}

	var id string
	err := b.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(index)
		if existing := idx.Get([]byte(name)); existing != nil {
			id = string(existing)
			return nil
		}

		rec := namedRecord{ID: b.idGenerator.Generate(), Name: name}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		if err := tx.Bucket(bucket).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		id = rec.ID
		return idx.Put([]byte(name), []byte(rec.ID))
	})
	return id, err
}

// InsertTransaction implements Store.
func (b *BoltStore) InsertTransaction(_ context.Context, t *Transaction) error {
	if t.ID == "" {
		t.ID = b.idGenerator.Generate()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = b.timeSource.Now()
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(transactionsBucket)
		if bucket.Get([]byte(t.ID)) != nil {
			return fmt.Errorf("duplicate transaction id %s", t.ID)
		}
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling transaction: %w", err)
		}
		return bucket.Put([]byte(t.ID), data)
	})
	if err != nil {
		return persistenceError("insert transaction", err)
	}
	return nil
}

// ListBanks implements Store.
func (b *BoltStore) ListBanks(_ context.Context) ([]Bank, error) {
	records, err := b.listNamed(banksByNameBucket)
	if err != nil {
		return nil, persistenceError("list banks", err)
	}
	banks := make([]Bank, 0, len(records))
	for _, r := range records {
		banks = append(banks, Bank(r))
	}
	return banks, nil
}

// ListCategories implements Store.
func (b *BoltStore) ListCategories(_ context.Context) ([]Category, error) {
	records, err := b.listNamed(categoriesByName)
	if err != nil {
		return nil, persistenceError("list categories", err)
	}
	categories := make([]Category, 0, len(records))
	for _, r := range records {
		categories = append(categories, Category(r))
	}
	return categories, nil
}

// listNamed walks a name index, which bbolt keeps in byte order.
func (b *BoltStore) listNamed(index []byte) ([]namedRecord, error) {
	records := make([]namedRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(index).ForEach(func(k, v []byte) error {
			records = append(records, namedRecord{ID: string(v), Name: string(k)})
			return nil
		})
	})
	return records, err
}

// RecentTransactions implements Store.
func (b *BoltStore) RecentTransactions(_ context.Context, userID string, limit int) ([]TransactionView, error) {
	views := make([]TransactionView, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		banks := tx.Bucket(banksBucket)
		categories := tx.Bucket(categoriesBucket)
		return tx.Bucket(transactionsBucket).ForEach(func(k, v []byte) error {
			var t Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("unmarshaling transaction: %w", err)
			}
			if t.UserID != userID {
				return nil
			}
			views = append(views, TransactionView{
				Transaction:  t,
				BankName:     recordName(banks.Get([]byte(t.BankID))),
				CategoryName: recordName(categories.Get([]byte(t.CategoryID))),
			})
			return nil
		})
	})
	if err != nil {
		return nil, persistenceError("list transactions", err)
	}

	slices.SortStableFunc(views, func(a, b TransactionView) int {
		return datetime.Compare(b.OccurredAt, a.OccurredAt)
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func recordName(data []byte) string {
	var rec namedRecord
	if data == nil || json.Unmarshal(data, &rec) != nil {
		return "-"
	}
	return rec.Name
}

// Summarize implements Store.
func (b *BoltStore) Summarize(_ context.Context, userID string) (Summary, error) {
	var summary Summary
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(transactionsBucket).ForEach(func(k, v []byte) error {
			var t Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("unmarshaling transaction: %w", err)
			}
			if t.UserID == userID {
				summary.Add(t.Kind, t.Amount)
			}
			return nil
		})
	})
	if err != nil {
		return Summary{}, persistenceError("summarize", err)
	}
	return summary, nil
}

// Close implements Store.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

var _ Store = (*BoltStore)(nil)
