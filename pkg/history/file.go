package history

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
)

// FileStore is a file-based run store for CLI applications.
// Runs are stored as JSON files in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based run store.
// If baseDir is empty, defaults to ~/.config/algoviz/runs/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "algoviz", "runs")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "create history dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Dir returns the directory holding the run files.
func (s *FileStore) Dir() string { return s.baseDir }

func (s *FileStore) runPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, r *Run) error {
	if err := apperrors.ValidateRunID(r.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated run.
	path := s.runPath(r.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write run file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write run file")
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Run, error) {
	if err := apperrors.ValidateRunID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "read run file")
	}

	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", id, err)
	}
	return &r, nil
}

func (s *FileStore) List(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "read history dir")
	}

	runs := make([]*Run, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name()))
		if err != nil {
			continue
		}
		var r Run
		if err := json.Unmarshal(data, &r); err != nil {
			continue // skip corrupt files
		}
		runs = append(runs, &r)
	}

	sortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Delete removes a run. Deleting an unknown run is not an error.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := apperrors.ValidateRunID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.runPath(id)); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "delete run file")
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func sortNewestFirst(runs []*Run) {
	slices.SortFunc(runs, func(a, b *Run) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func notFound(id string) error {
	return apperrors.New(apperrors.ErrCodeRunNotFound, "run %q not found", id)
}
