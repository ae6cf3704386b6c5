package vectorstore

import "context"

// Storage persists a single index and reloads it in a later process.
// Load returns domain.ErrIndexNotFound when nothing was persisted and
// domain.ErrIndexCorrupt when the stored bytes cannot be decoded.
type Storage interface {
	Persist(ctx context.Context, ix *Index) error
	Load(ctx context.Context) (*Index, error)
	Location() string
}
