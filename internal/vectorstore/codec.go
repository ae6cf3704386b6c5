package vectorstore

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"docqa/internal/domain"
)

// FormatVersion is bumped whenever the persisted layout changes.
const FormatVersion = 1

type persisted struct {
	Version   int
	Model     string
	Dimension int
	BuiltAt   time.Time
	Chunks    []domain.Chunk
}

// Encode writes ix in the versioned gob format.
func Encode(w io.Writer, ix *Index) error {
	return gob.NewEncoder(w).Encode(persisted{
		Version:   FormatVersion,
		Model:     ix.Model,
		Dimension: ix.Dimension,
		BuiltAt:   ix.BuiltAt,
		Chunks:    ix.Chunks,
	})
}

// Decode reads an index written by Encode and checks it is usable.
func Decode(r io.Reader) (*Index, error) {
	var p persisted
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrIndexCorrupt, err)
	}
	if p.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", domain.ErrIndexCorrupt, p.Version)
	}
	if p.Dimension <= 0 || len(p.Chunks) == 0 {
		return nil, fmt.Errorf("%w: empty index payload", domain.ErrIndexCorrupt)
	}
	for _, ch := range p.Chunks {
		if len(ch.Embedding) != p.Dimension {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, header says %d", domain.ErrIndexCorrupt, ch.ChunkID, len(ch.Embedding), p.Dimension)
		}
	}
	return &Index{Model: p.Model, Dimension: p.Dimension, Chunks: p.Chunks, BuiltAt: p.BuiltAt}, nil
}
