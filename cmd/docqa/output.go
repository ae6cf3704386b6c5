package main

import (
	"fmt"
	"io"
	"strings"

	"docqa/internal/domain"
)

// printAnswer writes the answer followed by the retrieved context.
// Refusals print only the refusal message.
func printAnswer(w io.Writer, a domain.GroundedAnswer) {
	fmt.Fprintln(w, a.Text)
	if !a.Grounded {
		return
	}
	if len(a.Context) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Retrieved context:")
	for i, r := range a.Context {
		fmt.Fprintf(w, "\nChunk %d | distance %.4f | %s\n", i+1, r.Score, r.Chunk.DocumentID)
		fmt.Fprintln(w, strings.TrimSpace(r.Chunk.Text))
	}
}
