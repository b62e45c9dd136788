package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgraph-io/ristretto"
)

// CachedStore memoizes the natural-key to id lookups of another Store.
// Writes and listings pass through.
type CachedStore struct {
	Store
	cache *ristretto.Cache
}

// NewCachedStore wraps store with an in-process id cache.
func NewCachedStore(store Store) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     1000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("creating id cache: %w", err)
	}
	return &CachedStore{Store: store, cache: cache}, nil
}

// LookupOrCreateUser implements Store.
func (c *CachedStore) LookupOrCreateUser(ctx context.Context, user User) (string, error) {
	return c.memoize("user:"+strconv.FormatInt(user.TelegramID, 10), func() (string, error) {
		return c.Store.LookupOrCreateUser(ctx, user)
	})
}

// LookupOrCreateBank implements Store.
func (c *CachedStore) LookupOrCreateBank(ctx context.Context, name string) (string, error) {
	return c.memoize("bank:"+name, func() (string, error) {
		return c.Store.LookupOrCreateBank(ctx, name)
	})
}

// LookupOrCreateCategory implements Store.
func (c *CachedStore) LookupOrCreateCategory(ctx context.Context, name string) (string, error) {
	return c.memoize("category:"+name, func() (string, error) {
		return c.Store.LookupOrCreateCategory(ctx, name)
	})
}

func (c *CachedStore) memoize(key string, load func() (string, error)) (string, error) {
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	id, err := load()
	if err != nil {
		return "", err
	}
	c.cache.Set(key, id, 1)
	c.cache.Wait()
	return id, nil
}

// Close implements Store.
func (c *CachedStore) Close() error {
	c.cache.Close()
	return c.Store.Close()
}

var _ Store = (*CachedStore)(nil)
