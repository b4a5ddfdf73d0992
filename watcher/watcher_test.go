package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) sink(lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, lines...)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

func waitForLines(t *testing.T, c *collector, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.snapshot()) >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, have %v", n, c.snapshot())
}

func TestWatcher_DrainsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abl_state.txt")
	c := &collector{}

	w, err := New(path, c.sink, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("CHECK LEVEL_COMPLETE 3\nCHECK FLIK_K 5\n"), 0o644))
	waitForLines(t, c, 2)

	assert.Equal(t, []string{"CHECK LEVEL_COMPLETE 3", "CHECK FLIK_K 5"}, c.snapshot())

	// The file is truncated after the drain.
	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		if len(data) == 0 {
			break
		}
		require.True(t, time.Now().Before(deadline), "trigger file never truncated")
		time.Sleep(10 * time.Millisecond)
	}

	// A later append is a fresh batch.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("CHECK GRAIN15 2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	waitForLines(t, c, 3)
	assert.Equal(t, "CHECK GRAIN15 2", c.snapshot()[2])
}

func TestDrain_Direct(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abl_state.txt")
	c := &collector{}

	w, err := New(path, c.sink, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	// Missing file: no-op.
	w.Drain()
	assert.Empty(t, c.snapshot())

	// Blank and whitespace-only lines are skipped.
	require.NoError(t, os.WriteFile(path, []byte("\n  \nCHECK GRAIN 2\n\n"), 0o644))
	w.Drain()
	waitForLines(t, c, 1)
	assert.Equal(t, []string{"CHECK GRAIN 2"}, c.snapshot())

	// Empty file: sink not called again.
	w.Drain()
	assert.Len(t, c.snapshot(), 1)
}

func TestWatcher_CloseStopsCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abl_state.txt")
	c := &collector{}

	w, err := New(path, c.sink, zap.NewNop())
	require.NoError(t, err)
	w.Close()

	require.NoError(t, os.WriteFile(path, []byte("CHECK LEVEL_COMPLETE 3\n"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}
