// Package durable persists the per-channel, per-durable-ID subscription
// cursors that survive connection close, adapted from the teacher's
// consumer-group offset store (internal/storage/consumers) — same
// load/flush-to-temp-file-then-rename persistence discipline, repurposed
// from (stream, group, partition) keys to (channel, durableID) keys.
package durable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mewbase/mewbase/internal/logger"
	"github.com/mewbase/mewbase/internal/metrics"
)

// CursorFile is the default filename for durable-cursor persistence.
const CursorFile = "durable-cursors.json"

// Cursor is a durable subscription's persisted consumption position.
type Cursor struct {
	Channel      string    `json:"channel"`
	DurableID    string    `json:"durableID"`
	RecordNumber int64     `json:"recordNumber"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func key(channel, durableID string) string {
	return channel + "\x00" + durableID
}

// Store is the in-memory, disk-backed registry of durable cursors.
type Store struct {
	filePath string
	log      zerolog.Logger
	metrics  *metrics.DurableCursorMetrics

	mu      sync.Mutex
	cursors map[string]*Cursor
}

// NewStore creates a durable-cursor store persisting to
// metadataDir/durable-cursors.json, loading any existing state. An
// optional DurableCursorMetrics, following the teacher's
// optional-trailing-arg convention for collaborators tests may omit.
func NewStore(metadataDir string, cursorMetrics ...*metrics.DurableCursorMetrics) (*Store, error) {
	var cm *metrics.DurableCursorMetrics
	if len(cursorMetrics) > 0 {
		cm = cursorMetrics[0]
	}
	s := &Store{
		filePath: filepath.Join(metadataDir, CursorFile),
		log:      logger.WithComponent("durable"),
		metrics:  cm,
		cursors:  make(map[string]*Cursor),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var cursors map[string]*Cursor
	if err := json.Unmarshal(data, &cursors); err != nil {
		return fmt.Errorf("durable: unmarshal cursors: %w", err)
	}
	s.cursors = cursors
	s.log.Info().Int("count", len(cursors)).Msg("durable cursors loaded from disk")
	return nil
}

func (s *Store) flushLocked() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("durable: create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(s.cursors, "", "  ")
	if err != nil {
		return fmt.Errorf("durable: marshal cursors: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("durable: write cursors file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("durable: rename cursors file: %w", err)
	}
	return nil
}

// Get returns the persisted cursor for (channel, durableID), if any.
func (s *Store) Get(channel, durableID string) (*Cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cursors[key(channel, durableID)]
	return c, ok
}

// Advance records recordNumber as the durable subscription's new
// consumption position and flushes it to disk.
func (s *Store) Advance(channel, durableID string, recordNumber int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[key(channel, durableID)] = &Cursor{
		Channel:      channel,
		DurableID:    durableID,
		RecordNumber: recordNumber,
		UpdatedAt:    time.Now(),
	}
	s.metrics.RecordAdvance(channel, durableID)
	return s.flushLocked()
}

// Delete discards the durable cursor, used by UNSUBSCRIBE.
func (s *Store) Delete(channel, durableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, key(channel, durableID))
	return s.flushLocked()
}
