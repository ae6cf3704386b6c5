package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/gate"
	"docqa/internal/prompt"
	"docqa/internal/retrieval"
	"docqa/internal/vectorstore"
)

// RAGService answers questions from one loaded, read-only index.
// It holds no per-query state and may be called concurrently.
type RAGService struct {
	index     *vectorstore.Index
	retriever *retrieval.Retriever
	assembler *prompt.Assembler
	model     domain.LanguageModel
	log       *slog.Logger
}

func NewRAGService(index *vectorstore.Index, retriever *retrieval.Retriever, assembler *prompt.Assembler, model domain.LanguageModel, log *slog.Logger) *RAGService {
	return &RAGService{index: index, retriever: retriever, assembler: assembler, model: model, log: log}
}

// Answer runs retrieval, prompting and gating for one question.
// Ungrounded outcomes are returned as data; only system failures are errors.
func (s *RAGService) Answer(ctx context.Context, question string) (domain.GroundedAnswer, error) {
	qid := uuid.NewString()
	log := s.log.With(slog.String("query_id", qid))
	transition(log, domain.StateReceived)

	q := strings.TrimSpace(question)
	if q == "" {
		transition(log, domain.StateEmptyContext)
		return refused(log, qid, nil), nil
	}

	results, err := s.retriever.Retrieve(ctx, s.index, q)
	if err != nil {
		log.Error("Retrieval failed", slog.Any("error", err))
		return domain.GroundedAnswer{}, err
	}
	transition(log, domain.StateRetrieved, slog.Int("hits", len(results)))
	if len(results) == 0 {
		transition(log, domain.StateEmptyContext)
		return refused(log, qid, nil), nil
	}

	p, err := s.assembler.Assemble(q, results)
	if err != nil {
		return domain.GroundedAnswer{}, err
	}
	if p.Included == 0 {
		transition(log, domain.StateEmptyContext)
		return refused(log, qid, nil), nil
	}
	transition(log, domain.StatePrompted, slog.Int("chunks", p.Included), slog.Int("prompt_chars", len([]rune(p.Text))))

	raw, err := s.model.Complete(ctx, p.Text)
	if err != nil {
		log.Error("Language model call failed", slog.Any("error", err))
		return domain.GroundedAnswer{}, err
	}
	transition(log, domain.StateResponded)

	answer := gate.Evaluate(raw, p.Included, results[:p.Included])
	answer.QueryID = qid
	if answer.Grounded {
		transition(log, domain.StateGrounded, slog.Any("used_chunks", answer.UsedChunks))
	} else {
		transition(log, domain.StateRefused)
	}
	return answer, nil
}

func refused(log *slog.Logger, qid string, retrieved []domain.RetrievalResult) domain.GroundedAnswer {
	transition(log, domain.StateRefused)
	a := gate.Refuse(retrieved)
	a.QueryID = qid
	return a
}

func transition(log *slog.Logger, state domain.QueryState, attrs ...any) {
	log.Debug("Query state", append([]any{slog.String("state", string(state))}, attrs...)...)
}
