package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// SentenceChunker groups sentences into chunks with sentence-level overlap.
// Chunk text is the exact span of the document covering its sentences.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) (*SentenceChunker, error) {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		return nil, fmt.Errorf("overlap sentences must be smaller than %d, got %d", sentencesPerChunk, overlapSentences)
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`[^.!?]*[.!?]+|[^.!?]+$`),
	}, nil
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	text := document.Content
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var spans [][2]int
	for _, loc := range c.splitter.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		// leading whitespace belongs to the gap, not the sentence
		for start < end && isSpace(text[start]) {
			start++
		}
		if start < end {
			spans = append(spans, [2]int{start, end})
		}
	}
	if len(spans) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	i, idx := 0, 0
	for i < len(spans) {
		end := i + c.sentencesPerChunk
		if end > len(spans) {
			end = len(spans)
		}
		byteStart, byteEnd := spans[i][0], spans[end-1][1]
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       text[byteStart:byteEnd],
			Index:      idx,
			Offset:     utf8.RuneCountInString(text[:byteStart]),
		})
		if end == len(spans) {
			break
		}
		i = end - c.overlapSentences
		idx++
	}
	return chunks, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
