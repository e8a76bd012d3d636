// Package filestore persists felt reports as a single JSON array file.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
)

// Store rewrites the whole file on every append. The mutex serializes
// load-append-save so concurrent submissions never share an id.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store backed by path. The file is created on first append.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load returns every stored report in append order. An absent or blank file
// is an empty collection.
func (s *Store) Load(_ context.Context) ([]domain.FeltReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append numbers r as len(collection)+1 and writes the collection back.
func (s *Store) Append(_ context.Context, r domain.FeltReport) (domain.FeltReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.load()
	if err != nil {
		return domain.FeltReport{}, err
	}
	r.ID = len(reports) + 1
	reports = append(reports, r)
	if err := s.save(reports); err != nil {
		return domain.FeltReport{}, err
	}
	return r, nil
}

// Ping checks that the directory holding the file exists.
func (s *Store) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("reports dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("reports dir %s is not a directory", dir)
	}
	return nil
}

func (s *Store) load() ([]domain.FeltReport, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.FeltReport{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}

	reports := []domain.FeltReport{}
	if len(bytes.TrimSpace(data)) == 0 {
		return reports, nil
	}
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decode reports %s: %w", s.path, err)
	}
	return reports, nil
}

// save writes to a temp file in the same directory and renames it over the
// target, so readers never see a half-written array.
func (s *Store) save(reports []domain.FeltReport) error {
	data, err := json.MarshalIndent(reports, "", "    ")
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write reports: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace reports: %w", err)
	}
	return nil
}
