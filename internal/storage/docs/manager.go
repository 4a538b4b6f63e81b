// Package docs implements the document binder store: the concrete
// `DocManager` collaborator spec.md treats as external. Each binder is one
// named document collection, backed by its own pebble LSM instance under
// baseDir, the way the teacher's kv.Manager keeps one pebble.DB per
// resource.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/mewbase/mewbase/internal/logger"
)

// Manager owns every binder's pebble instance plus the registry of named
// queries that QUERY{name, params} resolves against.
type Manager struct {
	baseDir string
	log     zerolog.Logger

	mu      sync.Mutex
	binders map[string]*pebble.DB
	queries map[string]NamedQuery
}

// NamedQuery is a server-registered (binder, matcher-template) pair that
// QUERY{name, params} streams documents through.
type NamedQuery struct {
	Binder          string
	MatcherTemplate string
}

// NewManager creates a document binder store rooted at baseDir, with one
// subdirectory per binder created lazily on first use.
func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir: baseDir,
		log:     logger.WithComponent("docs"),
		binders: make(map[string]*pebble.DB),
		queries: make(map[string]NamedQuery),
	}
}

// RegisterQuery adds or replaces a named query definition.
func (m *Manager) RegisterQuery(name string, q NamedQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[name] = q
}

func (m *Manager) lookupQuery(name string) (NamedQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queries[name]
	return q, ok
}

// openBinder returns the binder's pebble instance, opening it on disk if
// this is the first reference.
func (m *Manager) openBinder(binder string) (*pebble.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, ok := m.binders[binder]; ok {
		return db, nil
	}

	dir := filepath.Join(m.baseDir, binder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docs: create binder dir: %w", err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("docs: open binder %q: %w", binder, err)
	}
	m.binders[binder] = db
	m.log.Info().Str("binder", binder).Msg("opened document binder")
	return db, nil
}

// Get performs the point lookup that backs QUERY{binder, docID}.
func (m *Manager) Get(binder, docID string) ([]byte, bool, error) {
	db, err := m.openBinder(binder)
	if err != nil {
		return nil, false, err
	}
	val, closer, err := db.Get([]byte(docID))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	doc := make([]byte, len(val))
	copy(doc, val)
	return doc, true, nil
}

// Put is the administrative write path used by tests; it is not reachable
// from the wire protocol (no PUT frame exists).
func (m *Manager) Put(binder, docID string, doc []byte) error {
	db, err := m.openBinder(binder)
	if err != nil {
		return err
	}
	return db.Set([]byte(docID), doc, pebble.Sync)
}

// Close shuts down every open binder.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for binder, db := range m.binders {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("docs: close binder %q: %w", binder, err)
		}
	}
	return firstErr
}
