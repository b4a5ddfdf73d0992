package progress

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "abl_berries.txt"), filepath.Join(dir, "abl_seeds.txt"), zap.NewNop())
}

func TestTryIncrementBerry_Monotonic(t *testing.T) {
	s := newTestStore(t)

	for want := 1; want <= MaxBerryTier; want++ {
		tier, applied := s.TryIncrementBerry(1)
		assert.True(t, applied)
		assert.Equal(t, want, tier)
	}

	// Beyond max: no-op, tier stays.
	tier, applied := s.TryIncrementBerry(1)
	assert.False(t, applied)
	assert.Equal(t, MaxBerryTier, tier)
	assert.Equal(t, MaxBerryTier, s.BerryTier(1))
}

func TestTryIncrementBerry_OutOfRange(t *testing.T) {
	s := newTestStore(t)
	_, applied := s.TryIncrementBerry(-1)
	assert.False(t, applied)
	_, applied = s.TryIncrementBerry(NumLevels)
	assert.False(t, applied)
}

func TestTryIncrementSeed_RespectsCap(t *testing.T) {
	s := newTestStore(t)

	// Level 6, color 0 caps at 3.
	for want := 1; want <= 3; want++ {
		tier, applied := s.TryIncrementSeed(6, 0)
		assert.True(t, applied)
		assert.Equal(t, want, tier)
	}
	tier, applied := s.TryIncrementSeed(6, 0)
	assert.False(t, applied)
	assert.Equal(t, 3, tier)

	// Level 6, color 3 caps at 0: never applies.
	_, applied = s.TryIncrementSeed(6, 3)
	assert.False(t, applied)

	// Unknown level: never applies.
	_, applied = s.TryIncrementSeed(16, 0)
	assert.False(t, applied)
}

func TestSeedCap(t *testing.T) {
	assert.Equal(t, 4, SeedCap(3, 3))
	assert.Equal(t, 0, SeedCap(3, 2))
	assert.Equal(t, 0, SeedCap(99, 0))
	assert.Equal(t, 0, SeedCap(1, -1))
	assert.Equal(t, 0, SeedCap(1, NumColors))
}

func TestBerryDisabled(t *testing.T) {
	for _, level := range []int{2, 3, 4, 5, 9, 13, 17} {
		assert.True(t, BerryDisabled(level), "level %d", level)
	}
	assert.False(t, BerryDisabled(1))
	assert.False(t, BerryDisabled(15))
}

func TestBerryRoundTrip(t *testing.T) {
	s := newTestStore(t)

	s.TryIncrementBerry(1)
	s.TryIncrementBerry(1)
	s.TryIncrementBerry(15)

	reload := New(s.berryPath, s.seedPath, zap.NewNop())
	reload.LoadBerries()
	assert.Equal(t, 2, reload.BerryTier(1))
	assert.Equal(t, 1, reload.BerryTier(15))
	assert.Equal(t, 0, reload.BerryTier(2))
}

func TestSeedRoundTrip(t *testing.T) {
	s := newTestStore(t)

	s.TryIncrementSeed(4, 1)
	s.TryIncrementSeed(4, 1)
	s.TryIncrementSeed(9, 4)

	reload := New(s.berryPath, s.seedPath, zap.NewNop())
	reload.LoadSeeds()
	assert.Equal(t, 2, reload.SeedTier(4, 1))
	assert.Equal(t, 1, reload.SeedTier(9, 4))
	assert.Equal(t, 0, reload.SeedTier(4, 0))
}

func TestLoadBerries_TolerantAndClamped(t *testing.T) {
	s := newTestStore(t)
	content := "LEVEL 1 2\n" +
		"garbage line\n" +
		"LEVEL x 3\n" +
		"LEVEL 7 99\n" + // clamped to 4
		"LEVEL 999 1\n" + // out of range, skipped
		"LEVEL 8 -2\n" // clamped to 0
	require.NoError(t, os.WriteFile(s.berryPath, []byte(content), 0o644))

	s.LoadBerries()
	assert.Equal(t, 2, s.BerryTier(1))
	assert.Equal(t, MaxBerryTier, s.BerryTier(7))
	assert.Equal(t, 0, s.BerryTier(8))
}

func TestLoadSeeds_TolerantLines(t *testing.T) {
	s := newTestStore(t)
	content := "LEVEL 1 1 2 3 0 0\n" +
		"LEVEL 2 1 2\n" + // wrong field count, skipped
		"LEVEL 5 0 x 4 0 0\n" // bad cell skipped, rest kept
	require.NoError(t, os.WriteFile(s.seedPath, []byte(content), 0o644))

	s.LoadSeeds()
	assert.Equal(t, 1, s.SeedTier(1, 0))
	assert.Equal(t, 3, s.SeedTier(1, 2))
	assert.Equal(t, 0, s.SeedTier(2, 0))
	assert.Equal(t, 4, s.SeedTier(5, 2))
	assert.Equal(t, 0, s.SeedTier(5, 1))
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	s.TryIncrementBerry(1)
	s.TryIncrementSeed(1, 0)

	s.Reset()
	assert.Equal(t, 0, s.BerryTier(1))
	assert.Equal(t, 0, s.SeedTier(1, 0))
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)
	s.TryIncrementBerry(6)
	s.TryIncrementSeed(4, 3)

	berries, seeds := s.Snapshot()
	require.Len(t, berries, 1)
	assert.Equal(t, BerryRow{Level: 6, Tier: 1}, berries[0])
	require.Len(t, seeds, 1)
	assert.Equal(t, 4, seeds[0].Level)
	assert.Equal(t, 1, seeds[0].Tiers[3])
}

func TestConcurrentIncrements(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.TryIncrementBerry(1)
			s.TryIncrementSeed(1, 0)
		}()
	}
	wg.Wait()

	// 16 racing deliveries must land exactly at the caps, never beyond.
	assert.Equal(t, MaxBerryTier, s.BerryTier(1))
	assert.Equal(t, SeedCap(1, 0), s.SeedTier(1, 0))
}
