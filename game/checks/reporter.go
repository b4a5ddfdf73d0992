package checks

import (
	"context"

	"github.com/abl-archipelago/bridge/ap"
	"github.com/abl-archipelago/bridge/game/flags"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Recorder observes reported checks, typically for the event journal.
type Recorder interface {
	RecordCheck(locationID int64, line string)
}

// Reporter decodes trigger lines and reports accepted locations to the
// session. Reports pass through a token bucket so a burst of trigger
// lines cannot flood the server. Send failures are logged, not retried:
// the line is already consumed from the trigger file.
type Reporter struct {
	session ap.Session
	flags   flags.Set
	limiter *rate.Limiter
	rec     Recorder // may be nil
	logger  *zap.Logger
}

// NewReporter creates a Reporter with the given per-second report rate.
func NewReporter(session ap.Session, f flags.Set, rps float64, burst int, rec Recorder, logger *zap.Logger) *Reporter {
	return &Reporter{
		session: session,
		flags:   f,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rec:     rec,
		logger:  logger,
	}
}

// HandleLines is the watcher sink: each line is decoded and, when
// accepted, reported as a completed location.
func (r *Reporter) HandleLines(lines []string) {
	for _, line := range lines {
		if line == "" {
			continue
		}
		id, ok := Decode(line, r.flags)
		if !ok {
			r.logger.Info("dropping trigger line", zap.String("line", line))
			continue
		}

		if err := r.limiter.Wait(context.Background()); err != nil {
			r.logger.Warn("report limiter interrupted", zap.Error(err))
			return
		}

		r.logger.Info("completing location", zap.Int64("location", id), zap.String("line", line))
		if err := r.session.CompleteLocationChecks(id); err != nil {
			r.logger.Warn("failed to complete location", zap.Int64("location", id), zap.Error(err))
			continue
		}
		if r.rec != nil {
			r.rec.RecordCheck(id, line)
		}
	}
}
