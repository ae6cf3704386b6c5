package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Storage keeps one index per namespace as <dir>/<namespace>.gob.
// Writes go to a temp file in the same directory and are renamed into
// place, so readers never observe a partial index.
type Storage struct {
	dir       string
	namespace string
}

func NewStorage(dir, namespace string) *Storage {
	return &Storage{dir: dir, namespace: namespace}
}

func (s *Storage) Location() string {
	return filepath.Join(s.dir, s.namespace+".gob")
}

func (s *Storage) Persist(ctx context.Context, ix *vectorstore.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, s.namespace+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := vectorstore.Encode(tmp, ix); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	return os.Rename(tmpName, s.Location())
}

func (s *Storage) Load(ctx context.Context) (*vectorstore.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Location())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.Location())
		}
		return nil, err
	}
	defer f.Close()
	ix, err := vectorstore.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Location(), err)
	}
	return ix, nil
}
