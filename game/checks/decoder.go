// Package checks turns trigger-file lines written by the game into
// location identifiers and reports them to the session.
package checks

import (
	"strconv"
	"strings"

	"github.com/abl-archipelago/bridge/game/flags"
)

// Location id bases shared with the randomizer world definition.
const (
	levelBaseID = 1000
	grainBaseID = 2000
	enemyBaseID = 3000
)

// Offsets within a level's 1000-range block.
const (
	offsetFlikF     = 0
	offsetFlikL     = 1
	offsetFlikI     = 2
	offsetFlikK     = 3
	offsetFlikAll   = 4
	offsetAllGrain  = 5
	offsetLevelDone = 7
)

// Decode parses one trigger line of the shape
//
//	CHECK <TOKEN> [extra fields...] <levelIndex>
//
// and returns the location id, or ok=false when the line is malformed,
// the token unknown, or its feature flag off. Tokens are matched
// case-insensitively. GRAIN and ENEMIES accept two equivalent encodings,
// a numeric token suffix (GRAIN15, ENEMIES75) and two trailing numeric
// fields (amount/pct then level); the suffix wins when both are present.
func Decode(line string, f flags.Set) (int64, bool) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) < 3 || parts[0] != "CHECK" {
		return 0, false
	}

	levelIndex, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, false
	}

	token := strings.ToUpper(parts[1])

	switch {
	case token == "LEVEL_COMPLETE":
		if !f.LevelComplete {
			return 0, false
		}
		return levelID(levelIndex, offsetLevelDone), true

	case token == "FLIK_ALL":
		if !f.FlikAll {
			return 0, false
		}
		return levelID(levelIndex, offsetFlikAll), true

	case token == "FLIK_F" || token == "FLIK_L" || token == "FLIK_I" || token == "FLIK_K":
		if !f.FlikIndividual {
			return 0, false
		}
		offsets := map[string]int{
			"FLIK_F": offsetFlikF,
			"FLIK_L": offsetFlikL,
			"FLIK_I": offsetFlikI,
			"FLIK_K": offsetFlikK,
		}
		return levelID(levelIndex, offsets[token]), true

	case strings.HasPrefix(token, "GRAIN"):
		return decodeGrain(token, parts, levelIndex, f)

	case strings.HasPrefix(token, "ENEMIES"):
		return decodeEnemies(token, parts, levelIndex, f)
	}

	return 0, false
}

func decodeGrain(token string, parts []string, levelIndex int, f flags.Set) (int64, bool) {
	amount := 0

	if len(token) > len("GRAIN") {
		// Suffix form: GRAIN<N>.
		n, err := strconv.Atoi(token[len("GRAIN"):])
		if err != nil || n <= 0 {
			return 0, false
		}
		amount = n
	} else if len(parts) >= 4 {
		// Trailing-field form: CHECK GRAIN <amount> <level>.
		n, err1 := strconv.Atoi(parts[2])
		lvl, err2 := strconv.Atoi(parts[3])
		if err1 == nil && err2 == nil && n > 0 {
			amount = n
			levelIndex = lvl
		}
	}

	if amount > 0 {
		if !f.Grainsanity {
			return 0, false
		}
		return int64(grainBaseID + levelIndex*100 + amount), true
	}

	// Bare GRAIN: the all-grain check.
	if !f.GrainAll {
		return 0, false
	}
	return levelID(levelIndex, offsetAllGrain), true
}

func decodeEnemies(token string, parts []string, levelIndex int, f flags.Set) (int64, bool) {
	pct := 0

	if len(token) > len("ENEMIES") {
		n, err := strconv.Atoi(token[len("ENEMIES"):])
		if err != nil {
			return 0, false
		}
		pct = n
	} else if len(parts) >= 4 {
		n, err1 := strconv.Atoi(parts[2])
		lvl, err2 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil {
			return 0, false
		}
		pct = n
		levelIndex = lvl
	}

	var enabled bool
	switch pct {
	case 25:
		enabled = f.Enemy25
	case 50:
		enabled = f.Enemy50
	case 75:
		enabled = f.Enemy75
	case 100:
		enabled = f.Enemy100
	default:
		return 0, false
	}
	if !enabled {
		return 0, false
	}

	return int64(enemyBaseID + levelIndex*10 + pct/25), true
}

func levelID(levelIndex, offset int) int64 {
	return int64(levelBaseID + levelIndex*10 + offset)
}
