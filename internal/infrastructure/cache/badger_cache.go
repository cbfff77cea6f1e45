package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// BadgerCache is a Store on an in-memory badger instance.
// Entries use badger's native TTL, so expired keys disappear without a janitor.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache opens an in-memory badger database
func NewBadgerCache() (*BadgerCache, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	return &BadgerCache{db: db}, nil
}

// Get returns the value for key if present and not expired
func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	return value, true, nil
}

// Set stores value under key until ttl has elapsed
func (c *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})

	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Close releases the badger instance
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
