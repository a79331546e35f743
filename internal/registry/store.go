package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	rosterrors "github.com/rosterdev/roster/internal/errors"
	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
)

// Store reads and atomically writes the on-disk registry record.
//
// Read never fails: a missing, empty, or unparseable file yields an empty
// collection, favoring availability over corruption detection. The first
// time a non-empty file fails to parse, the store logs a warning and
// publishes a registry.corrupt event so the condition is observable.
type Store struct {
	path   string
	logger *logging.Logger
	bus    *event.Bus

	mu              sync.Mutex
	corruptReported bool
}

// NewStore creates a Store for the registry file at path. The bus may be
// nil when no consumer cares about diagnostic events.
func NewStore(path string, logger *logging.Logger, bus *event.Bus) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{
		path:   path,
		logger: logger.WithComponent("store"),
		bus:    bus,
	}
}

// Path returns the registry file path.
func (s *Store) Path() string { return s.path }

// Dir returns the directory containing the registry file.
func (s *Store) Dir() string { return filepath.Dir(s.path) }

// Read returns the persisted entries, migrated to the current schema and
// sorted by instance ID. It never returns an error; any failure yields an
// empty slice.
func (s *Store) Read() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("registry read failed", "path", s.path, "error", err)
		}
		return []Entry{}
	}
	if len(data) == 0 {
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.reportCorrupt(err)
		return []Entry{}
	}

	for i := range entries {
		entries[i], _ = Migrate(entries[i])
	}
	SortEntries(entries)
	return entries
}

// Write serializes the full collection and replaces the registry file via
// a write-to-temp-then-rename sequence, so concurrent readers observe
// either the previous or the new complete content, never a mix. The
// parent directory is created if absent.
func (s *Store) Write(entries []Entry) error {
	SortEntries(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	return atomicWriteFile(s.path, data, 0644)
}

// reportCorrupt logs and publishes the corruption diagnostic once per
// store lifetime. Subsequent corrupt reads stay silent to avoid log spam
// while peers keep heartbeating over the bad file.
func (s *Store) reportCorrupt(cause error) {
	s.mu.Lock()
	already := s.corruptReported
	s.corruptReported = true
	s.mu.Unlock()

	if already {
		return
	}
	s.logger.Warn("registry file is corrupt, treating as empty",
		"path", s.path,
		"error", cause,
	)
	if s.bus != nil {
		s.bus.Publish(event.NewRegistryCorruptEvent(s.path,
			fmt.Errorf("%w: %v", rosterrors.ErrRegistryCorrupt, cause)))
	}
}

// atomicWriteFile writes data to a file atomically by writing to a
// temporary file first, then renaming. The temp file lives in the target
// directory so the rename stays on one filesystem.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on any error
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
