package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

// FixedChunker slides a window of ChunkSize runes across a document,
// advancing ChunkSize-Overlap runes per step. The final window may be shorter.
type FixedChunker struct {
	chunkSize int
	overlap   int
}

// NewFixedChunker validates the window parameters.
func NewFixedChunker(chunkSize, overlap int) (*FixedChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &FixedChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

func (c *FixedChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	runes := []rune(document.Content)
	step := c.chunkSize - c.overlap

	var chunks []domain.Chunk
	for start, idx := 0, 0; ; start, idx = start+step, idx+1 {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       string(runes[start:end]),
			Index:      idx,
			Offset:     start,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// ChunkAll chunks every document in order.
func ChunkAll(c domain.Chunker, documents []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for _, d := range documents {
		chunks, err := c.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}
