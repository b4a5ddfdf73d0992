// Package watcher tails the trigger file the game appends CHECK lines to.
// Filesystem notifications feed a coalescing kick channel; a single
// consumer drains the file and hands complete lines to the sink, so drains
// never run concurrently with each other.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Sink receives the non-empty lines of each drain in file order.
type Sink func(lines []string)

// Watcher watches one trigger file.
type Watcher struct {
	path   string
	sink   Sink
	logger *zap.Logger

	fsw  *fsnotify.Watcher
	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	drainMu sync.Mutex // serializes notify drains with scheduler sweeps
	once    sync.Once
}

// New starts watching path's directory for changes to path. The directory
// (not the file) is watched so the game creating the file fresh still
// notifies.
func New(path string, sink Sink, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:   path,
		sink:   sink,
		logger: logger,
		fsw:    fsw,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	w.wg.Add(2)
	go w.listen()
	go w.consume()
	return w, nil
}

func (w *Watcher) listen() {
	defer w.wg.Done()
	base := filepath.Base(w.path)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.kick <- struct{}{}:
			default: // a drain is already pending
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("trigger watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) consume() {
	defer w.wg.Done()
	for {
		select {
		case <-w.kick:
			w.Drain()
		case <-w.done:
			return
		}
	}
}

// Drain reads the trigger file, truncates it and feeds its lines to the
// sink. Read-then-truncate leaves a narrow window where a line written
// between the two could be lost; the game writes one short line per event,
// so the window is accepted rather than locked against. Also called
// directly by the scheduler sweep.
func (w *Watcher) Drain() {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("failed to read trigger file", zap.Error(err))
		}
		return
	}
	if len(data) == 0 {
		return
	}

	if err := os.WriteFile(w.path, nil, 0o644); err != nil {
		w.logger.Warn("failed to truncate trigger file", zap.Error(err))
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		w.sink(lines)
	}
}

// Close stops the watcher. In-flight sink calls finish naturally.
func (w *Watcher) Close() {
	w.once.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
	w.wg.Wait()
}
