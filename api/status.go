// Package api exposes the optional local status surface for debugging a
// live bridge. It is read-only: all mutation flows through the engine and
// the trigger file.
package api

import (
	"github.com/abl-archipelago/bridge/game/flags"
	"github.com/abl-archipelago/bridge/game/items"
	"github.com/abl-archipelago/bridge/game/progress"
	"github.com/abl-archipelago/bridge/journal"
	mw "github.com/abl-archipelago/bridge/middleware"
	"github.com/abl-archipelago/bridge/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler serves /health and /status.
type Handler struct {
	identity string
	flagSet  flags.Set
	engine   *items.Engine
	prog     *progress.Store
	journal  *journal.Journal // may be nil
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// NewHandler creates a status Handler.
func NewHandler(identity string, flagSet flags.Set, engine *items.Engine, prog *progress.Store,
	j *journal.Journal, sched *scheduler.Scheduler, logger *zap.Logger) *Handler {
	return &Handler{
		identity: identity,
		flagSet:  flagSet,
		engine:   engine,
		prog:     prog,
		journal:  j,
		sched:    sched,
		logger:   logger,
	}
}

// Router builds the gin engine with the standard middleware chain.
func (h *Handler) Router(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(h.logger), mw.Recovery(h.logger))
	r.Use(mw.RateLimit(rate.Limit(rps), burst))

	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	return r
}

// Health is a trivial liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

// Status reports session identity, reconciliation progress and the
// non-zero progression rows.
func (h *Handler) Status(c *gin.Context) {
	berries, seeds := h.prog.Snapshot()

	resp := gin.H{
		"session":         h.identity,
		"items_processed": h.engine.AppliedCount(),
		"flags":           h.flagSet,
		"berries":         berries,
		"seeds":           seeds,
		"scheduler_tasks": h.sched.TaskNames(),
	}
	if h.journal != nil {
		itemCount, checkCount := h.journal.Counts()
		resp["journaled_items"] = itemCount
		resp["journaled_checks"] = checkCount
	}
	c.JSON(200, resp)
}
