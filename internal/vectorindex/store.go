package vectorindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const indexFile = "index.json"

var ErrNotFound = errors.New("vector index not found")

// Store persists a single index under a fixed directory. Every Save replaces
// the previous index wholesale.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Exists() bool {
	info, err := os.Stat(filepath.Join(s.dir, indexFile))
	return err == nil && info.Mode().IsRegular()
}

// Save writes idx into a staging directory next to the target and swaps it
// into place, so a reader never sees a partially written index file.
func (s *Store) Save(idx *Index) error {
	if idx == nil {
		return errors.New("nil index")
	}
	if err := idx.validate(); err != nil {
		return fmt.Errorf("invalid index: %w", err)
	}

	parent := filepath.Dir(filepath.Clean(s.dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create index parent dir failed: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(s.dir)+".staging-")
	if err != nil {
		return fmt.Errorf("create staging dir failed: %w", err)
	}
	defer os.RemoveAll(staging)

	payload, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index failed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, indexFile), payload, 0o644); err != nil {
		return fmt.Errorf("write index failed: %w", err)
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove previous index failed: %w", err)
	}
	if err := os.Rename(staging, s.dir); err != nil {
		return fmt.Errorf("move index into place failed: %w", err)
	}
	return nil
}

func (s *Store) Load() (*Index, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read index failed: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse index failed: %w", err)
	}
	if err := idx.validate(); err != nil {
		return nil, fmt.Errorf("invalid index: %w", err)
	}
	return &idx, nil
}
