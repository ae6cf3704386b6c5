package loader

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"docqa/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads text documents from a corpus directory.
type Loader struct {
	dir      string
	patterns []string
}

// New creates a loader for dir. Patterns are doublestar globs matched
// against slash-separated paths relative to dir.
func New(dir string, patterns []string) *Loader {
	if len(patterns) == 0 {
		patterns = []string{"*.md", "*.txt"}
	}
	return &Loader{dir: dir, patterns: patterns}
}

// Dir returns the corpus directory.
func (l *Loader) Dir() string { return l.dir }

// Load returns one Document per matching file in lexical walk order.
// A file that is not valid UTF-8 fails the whole load.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: corpus directory %s: %w", domain.ErrIngest, l.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrIngest, l.dir)
	}

	var docs []domain.Document
	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walk %s: %w", domain.ErrIngest, l.dir, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return fmt.Errorf("%w: walk %s: %w", domain.ErrIngest, l.dir, err)
		}
		rel = filepath.ToSlash(rel)
		if !l.matches(rel) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", domain.ErrIngest, rel, err)
		}
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrIngest, rel)
		}
		docs = append(docs, domain.Document{ID: rel, Path: path, Content: string(data)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (l *Loader) matches(rel string) bool {
	for _, pattern := range l.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
