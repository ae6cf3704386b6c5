package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const schema = `CREATE TABLE IF NOT EXISTS indexes (
	namespace      TEXT PRIMARY KEY,
	format_version INTEGER NOT NULL,
	payload        BLOB NOT NULL,
	built_at       TEXT NOT NULL
)`

// Storage keeps encoded indexes in a sqlite database, one row per namespace.
type Storage struct {
	db        *sql.DB
	path      string
	namespace string
}

// Open opens (or creates) the database at path.
func Open(path, namespace string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &Storage{db: db, path: path, namespace: namespace}, nil
}

func (s *Storage) Location() string { return s.path + "#" + s.namespace }

func (s *Storage) Close() error { return s.db.Close() }

func (s *Storage) Persist(ctx context.Context, ix *vectorstore.Index) error {
	var buf bytes.Buffer
	if err := vectorstore.Encode(&buf, ix); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO indexes (namespace, format_version, payload, built_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			format_version = excluded.format_version,
			payload = excluded.payload,
			built_at = excluded.built_at`,
		s.namespace, vectorstore.FormatVersion, buf.Bytes(), ix.BuiltAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store index: %w", err)
	}
	return tx.Commit()
}

func (s *Storage) Load(ctx context.Context) (*vectorstore.Index, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM indexes WHERE namespace = ?`, s.namespace).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.Location())
	}
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	ix, err := vectorstore.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Location(), err)
	}
	return ix, nil
}
