package domain

import "errors"

// Error kinds surfaced by the pipeline. Callers match them with errors.Is;
// implementations wrap them with fmt.Errorf("%w: ...").
var (
	ErrIngest            = errors.New("ingest failed")
	ErrEmptyCorpus       = errors.New("empty corpus")
	ErrIndexNotFound     = errors.New("index not found")
	ErrIndexCorrupt      = errors.New("index corrupt")
	ErrEmbedding         = errors.New("embedding provider misconfigured")
	ErrExternalCall      = errors.New("external call failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrPromptTooLong     = errors.New("prompt exceeds maximum length")
)
