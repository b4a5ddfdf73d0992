// Package storage owns the flat files shared with the game script: the
// command queue and trigger file the game reads/writes, the berry and seed
// state files, the flag file, the session identity token and the
// items-processed watermark. Formats are plain text so a stuck session can
// be inspected or repaired by hand.
package storage

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// File names inside the data directory. The game-side script hardcodes the
// same names, so they are part of the exchange contract.
const (
	TriggerFile   = "abl_state.txt"
	CommandFile   = "abl_command.txt"
	BerryFile     = "abl_berries.txt"
	SeedFile      = "abl_seeds.txt"
	FlagFile      = "abl_config.txt"
	SessionFile   = "session.txt"
	WatermarkFile = "items_processed.txt"
)

// Store resolves paths inside the data directory and performs the small
// file operations the bridge needs. Every fallible operation is logged and
// neutralized; in-memory state stays authoritative when the filesystem
// misbehaves.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a Store rooted at dataDir, creating the directory if needed.
func New(dataDir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dataDir, logger: logger}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute path of a named exchange file.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// AppendCommand appends one instruction line to the command queue. The
// queue is append-only from this side; the game drains it.
func (s *Store) AppendCommand(cmd string) error {
	f, err := os.OpenFile(s.Path(CommandFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(cmd + "\n")
	return err
}

// Watermark returns the count of received items already applied locally.
// A missing or unreadable file means zero.
func (s *Store) Watermark() int {
	data, err := os.ReadFile(s.Path(WatermarkFile))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}

// SetWatermark persists the items-processed count. Failures are logged and
// swallowed; the worst case is a redundant replay after restart, which the
// engine absorbs.
func (s *Store) SetWatermark(n int) {
	if err := os.WriteFile(s.Path(WatermarkFile), []byte(strconv.Itoa(n)), 0o644); err != nil {
		s.logger.Warn("failed to persist items-processed watermark", zap.Int("count", n), zap.Error(err))
	}
}

// Identity returns the persisted session identity token, or "" if none.
func (s *Store) Identity() string {
	data, err := os.ReadFile(s.Path(SessionFile))
	if err != nil {
		return ""
	}
	return string(data)
}

// ResetIfChanged compares identity against the persisted token. On a
// mismatch it deletes every state file, persists the new token and returns
// true so callers can drop any in-memory tables. Delete failures are
// logged and swallowed: a partially cleared state beats refusing to start.
func (s *Store) ResetIfChanged(identity string) bool {
	if s.Identity() == identity {
		return false
	}

	s.logger.Info("new session detected, resetting local state")

	for _, name := range []string{FlagFile, SeedFile, BerryFile, TriggerFile, CommandFile, WatermarkFile} {
		s.safeDelete(s.Path(name))
	}

	if err := os.WriteFile(s.Path(SessionFile), []byte(identity), 0o644); err != nil {
		s.logger.Warn("failed to persist session identity", zap.Error(err))
	}
	return true
}

func (s *Store) safeDelete(path string) {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete state file", zap.String("path", path), zap.Error(err))
	}
}

// SessionIdentity builds the opaque identity token for a (seed, slot,
// server) triple. Any change in the triple invalidates local state.
func SessionIdentity(seedName, slotName, serverAddress string) string {
	return seedName + "|" + slotName + "|" + serverAddress
}
