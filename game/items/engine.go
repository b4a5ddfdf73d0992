// Package items reconciles remote item grants with local game state. Every
// application path (startup backlog replay and live delivery) runs through
// one serialized entry point so duplicate deliveries are suppressed and the
// items-processed watermark never interleaves.
package items

import (
	"sync"

	"github.com/abl-archipelago/bridge/ap"
	"github.com/abl-archipelago/bridge/game/progress"
	"github.com/abl-archipelago/bridge/storage"
	"go.uber.org/zap"
)

// Item id ranges of the pool.
const (
	ExtraLifeID     = 210
	HealthUpgradeID = 211
	BerryBaseID     = 300
	SeedBaseID      = 400
	SeedEndID       = 900
)

// Recorder observes applied items, typically for the event journal. All
// methods must be cheap and non-blocking.
type Recorder interface {
	RecordItem(index int, itemID int64, name, effect string)
}

// Engine decides the effect of each item and applies it exactly once.
type Engine struct {
	progress *progress.Store
	files    *storage.Store
	rec      Recorder // may be nil
	logger   *zap.Logger

	mu      sync.Mutex
	applied int // positions of the received list already applied
}

// NewEngine creates an Engine whose applied-count starts from the
// persisted watermark (clamped to non-negative; a shrunk list is clamped
// during replay).
func NewEngine(prog *progress.Store, files *storage.Store, rec Recorder, logger *zap.Logger) *Engine {
	applied := files.Watermark()
	if applied < 0 {
		applied = 0
	}
	return &Engine{
		progress: prog,
		files:    files,
		rec:      rec,
		logger:   logger,
		applied:  applied,
	}
}

// AppliedCount returns how many received-list entries have been applied.
func (e *Engine) AppliedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// Apply dispatches a single item by id. It is the raw effect path: no
// watermark bookkeeping, one queue append or one counter increment at
// most. Duplicate suppression belongs to the batch paths.
func (e *Engine) Apply(itemID int64, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyLocked(-1, itemID, name)
}

// ApplyBatch applies items whose absolute list positions start at
// startIndex, skipping positions below the applied-count, then persists
// the new watermark. Safe to call concurrently from the replayer and the
// live delivery callback.
func (e *Engine) ApplyBatch(startIndex int, batch []ap.NetworkItem) {
	if len(batch) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	advanced := false
	for i, item := range batch {
		idx := startIndex + i
		if idx < e.applied {
			continue
		}
		e.applyLocked(idx, item.Item, ItemName(item.Item))
		e.applied = idx + 1
		advanced = true
	}
	if advanced {
		e.files.SetWatermark(e.applied)
	}
}

// ReplayBacklog applies every received item not yet acknowledged locally.
// Run once at startup, after the identity guard and state load. A
// watermark beyond the list length (corrupted or from a shrunk list) is
// clamped down first.
func (e *Engine) ReplayBacklog(session ap.Session) {
	list := session.AllItemsReceived()

	e.mu.Lock()
	if e.applied > len(list) {
		e.logger.Warn("watermark beyond received list, clamping",
			zap.Int("watermark", e.applied), zap.Int("received", len(list)))
		e.applied = len(list)
		e.files.SetWatermark(e.applied)
	}
	pending := len(list) - e.applied
	from := e.applied
	e.mu.Unlock()

	if pending == 0 {
		return
	}
	e.logger.Info("processing received-item backlog",
		zap.Int("from", from), zap.Int("to", len(list)))
	e.ApplyBatch(0, list)
}

// HandleDelivery is the live item callback registered with the session.
func (e *Engine) HandleDelivery(index int, item ap.NetworkItem) {
	e.ApplyBatch(index, []ap.NetworkItem{item})
}

// applyLocked performs the effect dispatch. Caller holds e.mu. index is
// the item's list position, or -1 for direct Apply calls.
func (e *Engine) applyLocked(index int, itemID int64, name string) {
	e.logger.Info("received item", zap.String("name", name), zap.Int64("id", itemID))

	effect := "ignored"
	switch {
	case itemID == ExtraLifeID:
		if err := e.files.AppendCommand("LIFE +1"); err != nil {
			e.logger.Warn("failed to queue extra life", zap.Error(err))
		} else {
			e.logger.Info("queued extra life")
		}
		effect = "LIFE +1"

	case itemID == HealthUpgradeID:
		if err := e.files.AppendCommand("HEALTH +1"); err != nil {
			e.logger.Warn("failed to queue health upgrade", zap.Error(err))
		} else {
			e.logger.Info("queued health upgrade")
		}
		effect = "HEALTH +1"

	case itemID >= BerryBaseID && itemID < BerryBaseID+100:
		level := int(itemID - BerryBaseID)
		if progress.BerryDisabled(level) {
			e.logger.Info("ignoring berry upgrade for disabled level", zap.Int("level", level))
			effect = "berry disabled"
			break
		}
		tier, ok := e.progress.TryIncrementBerry(level)
		if ok {
			e.logger.Info("berry upgraded", zap.Int("level", level), zap.Int("tier", tier))
			effect = "berry upgrade"
		} else {
			e.logger.Info("berry already at max tier", zap.Int("level", level))
			effect = "berry at max"
		}

	case itemID >= SeedBaseID && itemID < SeedEndID:
		color := int(itemID/100) - 4
		level := int(itemID % 100)
		if progress.SeedCap(level, color) <= 0 {
			e.logger.Debug("ignoring seed upgrade with no cap",
				zap.Int("level", level), zap.Int("color", color))
			effect = "seed uncapped"
			break
		}
		tier, ok := e.progress.TryIncrementSeed(level, color)
		if ok {
			e.logger.Info("seed upgraded",
				zap.Int("level", level), zap.Int("color", color), zap.Int("tier", tier))
			effect = "seed upgrade"
		} else {
			e.logger.Info("seed already at cap",
				zap.Int("level", level), zap.Int("color", color), zap.Int("cap", progress.SeedCap(level, color)))
			effect = "seed at cap"
		}

	default:
		// Unknown ids are tolerated so future pool extensions do not
		// break older bridges.
		e.logger.Debug("ignoring unknown item", zap.Int64("id", itemID))
	}

	if e.rec != nil {
		e.rec.RecordItem(index, itemID, name, effect)
	}
}
