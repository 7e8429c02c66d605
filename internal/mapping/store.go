// Package mapping persists links from remote track references to local audio
// files in a single JSON document.
package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"yotolink/internal/logger"
)

// Mapping links a track reference to the absolute path of a local file.
type Mapping map[string]string

// Store reads and writes a Mapping file. Every call loads or rewrites the
// whole file; concurrent writers are not coordinated.
type Store struct {
	path   string
	logger *logger.Logger
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{path: path, logger: log}
}

// Path returns the mapping file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted mapping. A missing file is an empty mapping; an
// unreadable or corrupt file is logged and treated as empty.
func (s *Store) Load() Mapping {
	m, err := s.read()
	if err != nil {
		s.logger.Error("Failed to load local track mapping: %v", err)
		return Mapping{}
	}
	return m
}

// Save replaces the mapping file with m. Failures are logged, not returned.
func (s *Store) Save(m Mapping) {
	if err := s.write(m); err != nil {
		s.logger.Error("Failed to save local track mapping: %v", err)
		return
	}
	s.logger.Debug("Saved %d track mappings to %s", len(m), s.path)
}

// Get returns the local path linked to ref.
func (s *Store) Get(ref string) (string, bool) {
	path, ok := s.Load()[ref]
	return path, ok
}

// Add links ref to the absolute form of path and persists the mapping.
func (s *Store) Add(ref, path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m := s.Load()
	m[ref] = abs
	s.Save(m)
}

// Remove drops the link for ref. It reports whether a link existed.
func (s *Store) Remove(ref string) bool {
	m := s.Load()
	if _, ok := m[ref]; !ok {
		return false
	}
	delete(m, ref)
	s.Save(m)
	return true
}

func (s *Store) read() (Mapping, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Mapping{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if m == nil {
		m = Mapping{}
	}
	return m, nil
}

// write encodes m with sorted keys and literal non-ASCII text, then swaps it
// in through a temp file in the same directory.
func (s *Store) write(m Mapping) error {
	if m == nil {
		m = Mapping{}
	}

	// encoding/json would silently substitute U+FFFD for invalid bytes.
	for ref, path := range m {
		if !utf8.ValidString(ref) || !utf8.ValidString(path) {
			return fmt.Errorf("mapping for %q is not valid UTF-8: %q", ref, path)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mapping directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
