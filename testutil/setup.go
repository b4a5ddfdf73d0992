// Package testutil provides shared fixtures: temp-dir backed stores and an
// in-memory Session fake. It requires no network and is safe for parallel
// tests.
package testutil

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abl-archipelago/bridge/ap"
	"github.com/abl-archipelago/bridge/game/progress"
	"github.com/abl-archipelago/bridge/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// SetupStore creates a file Store rooted in a fresh temp directory.
func SetupStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

// SetupProgress creates an empty ProgressionStore persisting into the
// given file Store's directory.
func SetupProgress(t *testing.T, files *storage.Store) *progress.Store {
	t.Helper()
	return progress.New(
		filepath.Join(files.Dir(), storage.BerryFile),
		filepath.Join(files.Dir(), storage.SeedFile),
		zap.NewNop(),
	)
}

// FakeSession is an in-memory ap.Session. AddItem appends to the received
// list and fires the registered handler, mimicking a live delivery.
type FakeSession struct {
	Seed string
	Slot map[string]any

	// FailChecks makes CompleteLocationChecks return an error.
	FailChecks bool

	mu        sync.Mutex
	items     []ap.NetworkItem
	handler   func(int, ap.NetworkItem)
	completed []int64
	closed    bool
}

var _ ap.Session = (*FakeSession)(nil)

func (f *FakeSession) SeedName() string { return f.Seed }

func (f *FakeSession) SlotData() map[string]any { return f.Slot }

func (f *FakeSession) AllItemsReceived() []ap.NetworkItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ap.NetworkItem, len(f.items))
	copy(out, f.items)
	return out
}

func (f *FakeSession) SetItemHandler(fn func(index int, item ap.NetworkItem)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
}

func (f *FakeSession) CompleteLocationChecks(ids ...int64) error {
	if f.FailChecks {
		return errFailChecks
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, ids...)
	return nil
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// SeedItems preloads the received list without firing the handler, as if
// the items arrived before this process started.
func (f *FakeSession) SeedItems(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.items = append(f.items, ap.NetworkItem{Item: id})
	}
}

// AddItem appends one item and fires the handler with its list position.
func (f *FakeSession) AddItem(id int64) {
	f.mu.Lock()
	f.items = append(f.items, ap.NetworkItem{Item: id})
	index := len(f.items) - 1
	item := f.items[index]
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		handler(index, item)
	}
}

// Completed returns every location id reported so far.
func (f *FakeSession) Completed() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.completed))
	copy(out, f.completed)
	return out
}

var errFailChecks = errors.New("location check send failed")
