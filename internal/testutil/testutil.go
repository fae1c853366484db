// Package testutil provides shared test helpers for setting up stores and fixtures.
package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/starford/scribe/internal/store"
)

// TestDB creates a temporary SQLite entity store that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "scribe-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ErrInjected is returned by FlakyStore when a save is made to fail.
var ErrInjected = errors.New("injected save failure")

// FlakyStore wraps a store.Store and fails the next Save calls on demand.
type FlakyStore struct {
	store.Store

	mu       sync.Mutex
	failNext int
	saves    int
}

// NewFlakyStore wraps s.
func NewFlakyStore(s store.Store) *FlakyStore {
	return &FlakyStore{Store: s}
}

// FailNext makes the next n Save calls return ErrInjected without touching storage.
func (f *FlakyStore) FailNext(n int) {
	f.mu.Lock()
	f.failNext = n
	f.mu.Unlock()
}

// Saves returns how many Save calls reached the wrapped store.
func (f *FlakyStore) Saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// Save implements store.Store.
func (f *FlakyStore) Save(ctx context.Context, b store.Batch) error {
	f.mu.Lock()
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return ErrInjected
	}
	f.saves++
	f.mu.Unlock()
	return f.Store.Save(ctx, b)
}
