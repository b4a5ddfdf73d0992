// Package journal keeps an append-only history of applied items and
// reported checks in a local SQLite database. It is observational only:
// writes happen asynchronously in batches and a full buffer drops entries
// rather than stalling item application.
package journal

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	bufferSize    = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// ItemEvent is one applied item delivery.
type ItemEvent struct {
	ID        uint `gorm:"primaryKey"`
	At        time.Time
	ListIndex int
	ItemID    int64
	Name      string
	Effect    string
}

// CheckEvent is one location reported to the server.
type CheckEvent struct {
	ID         uint `gorm:"primaryKey"`
	At         time.Time
	LocationID int64
	Line       string
}

// Journal logs events asynchronously. It satisfies the Recorder interfaces
// of the items engine and the check reporter.
type Journal struct {
	db     *gorm.DB
	ch     chan any
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// Open opens (or creates) the journal database and starts the background
// writer.
func Open(path string, log *zap.Logger) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ItemEvent{}, &CheckEvent{}); err != nil {
		return nil, err
	}

	j := &Journal{
		db:     db,
		ch:     make(chan any, bufferSize),
		stopCh: make(chan struct{}),
		logger: log,
	}
	j.wg.Add(1)
	go j.worker()
	return j, nil
}

// RecordItem enqueues an applied-item event.
func (j *Journal) RecordItem(index int, itemID int64, name, effect string) {
	j.enqueue(&ItemEvent{At: time.Now(), ListIndex: index, ItemID: itemID, Name: name, Effect: effect})
}

// RecordCheck enqueues a reported-check event.
func (j *Journal) RecordCheck(locationID int64, line string) {
	j.enqueue(&CheckEvent{At: time.Now(), LocationID: locationID, Line: line})
}

func (j *Journal) enqueue(event any) {
	select {
	case j.ch <- event:
	default:
		j.logger.Warn("journal buffer full, dropping event")
	}
}

// Counts returns how many item and check events have been journaled.
func (j *Journal) Counts() (items, checks int64) {
	j.db.Model(&ItemEvent{}).Count(&items)
	j.db.Model(&CheckEvent{}).Count(&checks)
	return items, checks
}

// Stop flushes remaining events and shuts down the writer. It blocks
// until the worker goroutine has finished.
func (j *Journal) Stop() {
	select {
	case <-j.stopCh:
	default:
		close(j.stopCh)
	}
	j.wg.Wait()
}

func (j *Journal) worker() {
	defer j.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	items := make([]*ItemEvent, 0, batchSize)
	checks := make([]*CheckEvent, 0, batchSize)

	flush := func() {
		if len(items) > 0 {
			if err := j.db.Create(&items).Error; err != nil {
				j.logger.Error("journal item batch write failed", zap.Error(err))
			}
			items = items[:0]
		}
		if len(checks) > 0 {
			if err := j.db.Create(&checks).Error; err != nil {
				j.logger.Error("journal check batch write failed", zap.Error(err))
			}
			checks = checks[:0]
		}
	}

	add := func(event any) {
		switch e := event.(type) {
		case *ItemEvent:
			items = append(items, e)
		case *CheckEvent:
			checks = append(checks, e)
		}
		if len(items)+len(checks) >= batchSize {
			flush()
		}
	}

	for {
		select {
		case event := <-j.ch:
			add(event)
		case <-ticker.C:
			flush()
		case <-j.stopCh:
			for {
				select {
				case event := <-j.ch:
					add(event)
				default:
					flush()
					return
				}
			}
		}
	}
}
