// Package flags projects the slot data negotiated at login into the fixed
// feature-flag set the game script consumes.
package flags

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	minGrainsanityStep     = 1
	maxGrainsanityStep     = 50
	defaultGrainsanityStep = 10
)

// Set holds the ten per-session settings. Derived once at login and
// immutable afterwards.
type Set struct {
	LevelComplete bool

	FlikIndividual bool
	FlikAll        bool

	GrainAll        bool
	Grainsanity     bool
	GrainsanityStep int

	Enemy25  bool
	Enemy50  bool
	Enemy75  bool
	Enemy100 bool
}

// Defaults returns the flag set used when slot data is missing or
// unreadable: level-complete reporting on, every sanity option off.
func Defaults() Set {
	return Set{
		LevelComplete:   true,
		GrainsanityStep: defaultGrainsanityStep,
	}
}

// Project derives the flag set from slot data. Each value tolerates the
// encodings Archipelago worlds emit in practice (bool, any integer width,
// float, numeric string); anything unreadable falls back to its default.
// A nil bag logs a warning and yields Defaults so the game is never left
// without a config file.
func Project(slotData map[string]any, logger *zap.Logger) Set {
	s := Defaults()
	if slotData == nil {
		logger.Warn("slot data missing, sanity options default off")
		return s
	}

	s.LevelComplete = slotInt(slotData, "enable_level_complete", 1) != 0
	s.GrainAll = slotInt(slotData, "enable_grain_all", 0) != 0
	s.FlikAll = slotInt(slotData, "enable_flik_all", 0) != 0
	s.FlikIndividual = slotInt(slotData, "enable_flik_individual", 0) != 0

	s.Grainsanity = slotInt(slotData, "enable_grainsanity", 0) != 0
	s.GrainsanityStep = clampStep(slotInt(slotData, "grainsanity_step", defaultGrainsanityStep))

	s.Enemy25 = slotInt(slotData, "enable_enemy_25", 0) != 0
	s.Enemy50 = slotInt(slotData, "enable_enemy_50", 0) != 0
	s.Enemy75 = slotInt(slotData, "enable_enemy_75", 0) != 0
	s.Enemy100 = slotInt(slotData, "enable_enemy_100", 0) != 0

	return s
}

// WriteFile overwrites the flag file the game script reads. Always writes
// all ten keys so the script never sees a partial set.
func (s Set) WriteFile(path string) error {
	var b strings.Builder
	for _, kv := range []struct {
		key string
		val int
	}{
		{"enable_level_complete", boolInt(s.LevelComplete)},
		{"enable_flik_individual", boolInt(s.FlikIndividual)},
		{"enable_flik_all", boolInt(s.FlikAll)},
		{"enable_grain_all", boolInt(s.GrainAll)},
		{"enable_grainsanity", boolInt(s.Grainsanity)},
		{"grainsanity_step", clampStep(s.GrainsanityStep)},
		{"enable_enemy_25", boolInt(s.Enemy25)},
		{"enable_enemy_50", boolInt(s.Enemy50)},
		{"enable_enemy_75", boolInt(s.Enemy75)},
		{"enable_enemy_100", boolInt(s.Enemy100)},
	} {
		fmt.Fprintf(&b, "%s=%d\n", kv.key, kv.val)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func clampStep(n int) int {
	if n < minGrainsanityStep {
		return minGrainsanityStep
	}
	if n > maxGrainsanityStep {
		return maxGrainsanityStep
	}
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// slotInt reads one loosely-typed slot value as an int.
func slotInt(slotData map[string]any, key string, def int) int {
	v, ok := slotData[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return boolInt(t)
	case int:
		return t
	case int8:
		return int(t)
	case int16:
		return int(t)
	case int32:
		return int(t)
	case int64:
		return int(t)
	case uint8:
		return int(t)
	case uint16:
		return int(t)
	case uint32:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}
