package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/gate"
)

const defaultTemplate = `You are a retrieval-augmented QA system.

Rules:
1. Use ONLY the context below.
2. Do NOT use outside knowledge.
3. If the answer is not present in the context, reply exactly:
{{.Sentinel}}
and nothing else.

CONTEXT:
{{range .Chunks}}
[Chunk {{.Number}}]
{{.Text}}
{{end}}
QUESTION:
{{.Question}}

Return format:

ANSWER:
- bullet point
- bullet point
- bullet point

SOURCE_CHUNKS:
- Chunk numbers used
`

// Prompt is a rendered grounding prompt. Included is the number of
// retrieved chunks that fit; they are numbered 1..Included.
type Prompt struct {
	Text     string
	Included int
}

// ChunkView is a numbered context block exposed to templates.
type ChunkView struct {
	Number     int
	DocumentID string
	Text       string
	Score      float64
}

type templateData struct {
	Sentinel string
	Question string
	Chunks   []ChunkView
}

// Assembler renders prompts bounded by a per-chunk cap and a total cap,
// both counted in runes.
type Assembler struct {
	tmpl           *template.Template
	chunkCharLimit int
	maxPromptChars int
}

// New creates an assembler with the built-in template.
func New(chunkCharLimit, maxPromptChars int) (*Assembler, error) {
	return NewWithTemplate(defaultTemplate, chunkCharLimit, maxPromptChars)
}

// NewFromFile creates an assembler from a template file. An empty path
// selects the built-in template.
func NewFromFile(path string, chunkCharLimit, maxPromptChars int) (*Assembler, error) {
	if path == "" {
		return New(chunkCharLimit, maxPromptChars)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	return NewWithTemplate(string(data), chunkCharLimit, maxPromptChars)
}

// NewWithTemplate parses text and checks that its output instructs the
// model with the not-found sentinel.
func NewWithTemplate(text string, chunkCharLimit, maxPromptChars int) (*Assembler, error) {
	if chunkCharLimit <= 0 || maxPromptChars <= 0 {
		return nil, fmt.Errorf("prompt limits must be positive (chunk %d, total %d)", chunkCharLimit, maxPromptChars)
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	a := &Assembler{tmpl: tmpl, chunkCharLimit: chunkCharLimit, maxPromptChars: maxPromptChars}
	sample, err := a.render("sample question", []ChunkView{{Number: 1, DocumentID: "sample", Text: "sample context"}})
	if err != nil {
		return nil, fmt.Errorf("render prompt template: %w", err)
	}
	if !strings.Contains(sample, gate.Sentinel) {
		return nil, fmt.Errorf("prompt template must instruct the model to reply %q", gate.Sentinel)
	}
	return a, nil
}

// Assemble renders the prompt for question and results. Chunk texts are
// cut to the per-chunk cap; trailing chunks are dropped until the prompt
// fits the total cap. domain.ErrPromptTooLong is returned when even the
// prompt without context does not fit.
func (a *Assembler) Assemble(question string, results []domain.RetrievalResult) (Prompt, error) {
	views := make([]ChunkView, len(results))
	for i, r := range results {
		views[i] = ChunkView{
			Number:     i + 1,
			DocumentID: r.Chunk.DocumentID,
			Text:       truncateRunes(r.Chunk.Text, a.chunkCharLimit),
			Score:      r.Score,
		}
	}
	for n := len(views); n >= 0; n-- {
		text, err := a.render(question, views[:n])
		if err != nil {
			return Prompt{}, err
		}
		if utf8.RuneCountInString(text) <= a.maxPromptChars {
			return Prompt{Text: text, Included: n}, nil
		}
	}
	return Prompt{}, fmt.Errorf("%w: question does not fit in %d characters", domain.ErrPromptTooLong, a.maxPromptChars)
}

func (a *Assembler) render(question string, chunks []ChunkView) (string, error) {
	var buf bytes.Buffer
	err := a.tmpl.Execute(&buf, templateData{Sentinel: gate.Sentinel, Question: question, Chunks: chunks})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
