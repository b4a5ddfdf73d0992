// Package progress owns the tiered-upgrade tables: one berry tier per
// level and one seed tier per (level, color) cell. Tables persist to flat
// text files after every mutation and survive restarts; a session change
// clears them.
package progress

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	// NumLevels is the size of the level index space (the game addresses
	// levels with a single byte).
	NumLevels = 256

	// NumColors is the number of seed colors (brown, green, blue, purple,
	// yellow).
	NumColors = 5

	// MaxBerryTier is the highest berry upgrade per level.
	MaxBerryTier = 4
)

// seedCaps lists, per level, the maximum seed tier for each color. A cap
// of 0 means that color has no seed patch in the level and never upgrades.
// Levels absent from the table have no seed upgrades at all.
var seedCaps = map[int][NumColors]int{
	1:  {4, 3, 3, 0, 0},
	2:  {1, 0, 0, 4, 0},
	3:  {1, 2, 0, 4, 0},
	4:  {1, 4, 1, 4, 2},
	5:  {2, 2, 4, 4, 0},
	6:  {3, 2, 0, 0, 0},
	7:  {4, 2, 3, 2, 0},
	8:  {1, 0, 0, 0, 0},
	9:  {2, 4, 4, 0, 3},
	10: {2, 4, 3, 0, 0},
	11: {1, 0, 4, 0, 2},
	12: {4, 4, 0, 0, 0},
	13: {1, 3, 0, 4, 0},
	14: {1, 0, 0, 0, 0},
	15: {2, 0, 3, 0, 0},
	17: {1, 2, 0, 4, 0},
}

// berryDisabled lists levels whose berry progression is handled by another
// in-game mechanic (purple seeds grant the berry) or that have no gold
// berry check at all.
var berryDisabled = map[int]bool{
	2:  true, // Council Chamber
	3:  true, // Tunnels
	4:  true, // City Entrance
	5:  true, // City Square
	9:  true, // Ant Hill, Part 2
	13: true, // Battle Arena
	17: true, // Training
}

// SeedCap returns the maximum seed tier for (level, color), or 0 when the
// cell never upgrades.
func SeedCap(level, color int) int {
	if color < 0 || color >= NumColors {
		return 0
	}
	caps, ok := seedCaps[level]
	if !ok {
		return 0
	}
	return caps[color]
}

// BerryDisabled reports whether berry progression is switched off for the
// level.
func BerryDisabled(level int) bool { return berryDisabled[level] }

// Store holds both progression tables. The berry and seed tables are
// independent and guarded by separate mutexes so unrelated upgrades never
// block each other. Each try-increment persists its table before releasing
// the lock, so no two writers interleave a partial file write.
type Store struct {
	berryPath string
	seedPath  string
	logger    *zap.Logger

	berryMu sync.Mutex
	berries [NumLevels]int

	seedMu sync.Mutex
	seeds  [NumLevels][NumColors]int
}

// New creates an empty Store persisting to the given files.
func New(berryPath, seedPath string, logger *zap.Logger) *Store {
	return &Store{berryPath: berryPath, seedPath: seedPath, logger: logger}
}

// Reset clears both tables in memory. It does not touch the files; the
// session-identity guard deletes those.
func (s *Store) Reset() {
	s.berryMu.Lock()
	s.berries = [NumLevels]int{}
	s.berryMu.Unlock()

	s.seedMu.Lock()
	s.seeds = [NumLevels][NumColors]int{}
	s.seedMu.Unlock()
}

// BerryTier returns the current berry tier for a level.
func (s *Store) BerryTier(level int) int {
	if level < 0 || level >= NumLevels {
		return 0
	}
	s.berryMu.Lock()
	defer s.berryMu.Unlock()
	return s.berries[level]
}

// SeedTier returns the current seed tier for (level, color).
func (s *Store) SeedTier(level, color int) int {
	if level < 0 || level >= NumLevels || color < 0 || color >= NumColors {
		return 0
	}
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	return s.seeds[level][color]
}

// TryIncrementBerry bumps the berry tier for a level by exactly one, up to
// MaxBerryTier, and persists the table. It returns the resulting tier and
// whether the increment applied (false means already at max or the level
// index is out of range).
func (s *Store) TryIncrementBerry(level int) (tier int, applied bool) {
	if level < 0 || level >= NumLevels {
		return 0, false
	}
	s.berryMu.Lock()
	defer s.berryMu.Unlock()

	cur := s.berries[level]
	if cur >= MaxBerryTier {
		return cur, false
	}
	s.berries[level] = cur + 1
	s.saveBerriesLocked()
	return cur + 1, true
}

// TryIncrementSeed bumps the seed tier for (level, color) by exactly one,
// up to the cell's cap, and persists the table. A cap of 0 (or an unknown
// level) never applies.
func (s *Store) TryIncrementSeed(level, color int) (tier int, applied bool) {
	limit := SeedCap(level, color)
	if limit <= 0 {
		return 0, false
	}
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	cur := s.seeds[level][color]
	if cur >= limit {
		return cur, false
	}
	s.seeds[level][color] = cur + 1
	s.saveSeedsLocked()
	return cur + 1, true
}

// LoadBerries replaces the berry table with the file's contents. Malformed
// lines are skipped individually; tiers are clamped into [0, MaxBerryTier].
// A missing file leaves the table empty.
func (s *Store) LoadBerries() {
	s.berryMu.Lock()
	defer s.berryMu.Unlock()

	s.berries = [NumLevels]int{}

	data, err := os.ReadFile(s.berryPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to load berry state", zap.Error(err))
		}
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 3 || parts[0] != "LEVEL" {
			continue
		}
		idx, err1 := strconv.Atoi(parts[1])
		tier, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || idx < 0 || idx >= NumLevels {
			continue
		}
		s.berries[idx] = clamp(tier, 0, MaxBerryTier)
	}
}

// SaveBerries persists the berry table immediately, outside any increment.
func (s *Store) SaveBerries() {
	s.berryMu.Lock()
	defer s.berryMu.Unlock()
	s.saveBerriesLocked()
}

// LoadSeeds replaces the seed table with the file's contents. Malformed
// lines are skipped; tiers are clamped to non-negative.
func (s *Store) LoadSeeds() {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	s.seeds = [NumLevels][NumColors]int{}

	data, err := os.ReadFile(s.seedPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to load seed state", zap.Error(err))
		}
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 2+NumColors || parts[0] != "LEVEL" {
			continue
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 || idx >= NumLevels {
			continue
		}
		for c := 0; c < NumColors; c++ {
			tier, err := strconv.Atoi(parts[2+c])
			if err != nil || tier < 0 {
				continue
			}
			s.seeds[idx][c] = tier
		}
	}
}

// SaveSeeds persists the seed table immediately, outside any increment.
func (s *Store) SaveSeeds() {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	s.saveSeedsLocked()
}

// saveBerriesLocked writes one line per non-zero level. Omitted levels
// mean "all zero", not "unknown". Caller holds berryMu.
func (s *Store) saveBerriesLocked() {
	var b strings.Builder
	for i, tier := range s.berries {
		if tier > 0 {
			fmt.Fprintf(&b, "LEVEL %d %d\n", i, tier)
		}
	}
	if err := os.WriteFile(s.berryPath, []byte(b.String()), 0o644); err != nil {
		s.logger.Warn("failed to save berry state", zap.Error(err))
	}
}

// saveSeedsLocked writes one line per level with any non-zero color.
// Caller holds seedMu.
func (s *Store) saveSeedsLocked() {
	var b strings.Builder
	for i := 0; i < NumLevels; i++ {
		any := false
		for c := 0; c < NumColors; c++ {
			if s.seeds[i][c] > 0 {
				any = true
				break
			}
		}
		if !any {
			continue
		}
		fmt.Fprintf(&b, "LEVEL %d %d %d %d %d %d\n", i,
			s.seeds[i][0], s.seeds[i][1], s.seeds[i][2], s.seeds[i][3], s.seeds[i][4])
	}
	if err := os.WriteFile(s.seedPath, []byte(b.String()), 0o644); err != nil {
		s.logger.Warn("failed to save seed state", zap.Error(err))
	}
}

// BerryRow is one non-zero berry table entry, for status reporting.
type BerryRow struct {
	Level int `json:"level"`
	Tier  int `json:"tier"`
}

// SeedRow is one seed table entry with a non-zero color, for status
// reporting.
type SeedRow struct {
	Level int            `json:"level"`
	Tiers [NumColors]int `json:"tiers"`
}

// Snapshot returns the non-zero rows of both tables.
func (s *Store) Snapshot() (berries []BerryRow, seeds []SeedRow) {
	s.berryMu.Lock()
	for i, tier := range s.berries {
		if tier > 0 {
			berries = append(berries, BerryRow{Level: i, Tier: tier})
		}
	}
	s.berryMu.Unlock()

	s.seedMu.Lock()
	for i := 0; i < NumLevels; i++ {
		for c := 0; c < NumColors; c++ {
			if s.seeds[i][c] > 0 {
				seeds = append(seeds, SeedRow{Level: i, Tiers: s.seeds[i]})
				break
			}
		}
	}
	s.seedMu.Unlock()
	return berries, seeds
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
