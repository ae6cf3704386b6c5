package gate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

// Sentinel is the exact reply the model is instructed to give when the
// context does not contain the answer.
const Sentinel = "NOT FOUND IN DOCUMENTS"

// RefusalMessage is shown instead of the model output for ungrounded answers.
const RefusalMessage = "Answer not present in provided documents."

var (
	sourcesHeader = regexp.MustCompile(`(?i)source[_ ]chunks\s*:`)
	chunkRef      = regexp.MustCompile(`(?i)chunk[s]?\s*#?\s*(\d+(?:\s*(?:,|and|&)\s*\d+)*)`)
	number        = regexp.MustCompile(`\d+`)
)

// ContainsSentinel reports whether raw carries the not-found sentinel
// anywhere, ignoring case.
func ContainsSentinel(raw string) bool {
	return strings.Contains(strings.ToUpper(raw), Sentinel)
}

// Evaluate turns a raw model response into an answer. included is the
// number of chunks that were placed in the prompt.
func Evaluate(raw string, included int, retrieved []domain.RetrievalResult) domain.GroundedAnswer {
	if included == 0 || len(retrieved) == 0 || ContainsSentinel(raw) {
		return Refuse(retrieved)
	}
	return domain.GroundedAnswer{
		Text:       strings.TrimSpace(raw),
		Grounded:   true,
		UsedChunks: Citations(raw, included),
		Context:    retrieved,
	}
}

// Refuse builds the ungrounded answer carrying the fixed refusal message.
func Refuse(retrieved []domain.RetrievalResult) domain.GroundedAnswer {
	return domain.GroundedAnswer{Text: RefusalMessage, Grounded: false, Context: retrieved}
}

// Citations extracts the 1-based chunk numbers cited in raw. When a
// SOURCE_CHUNKS section is present every integer in it counts; otherwise
// only "Chunk N" references do. Numbers outside 1..included are dropped.
// The result is sorted and unique.
func Citations(raw string, included int) []int {
	seen := make(map[int]struct{})
	add := func(s string) {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > included {
			return
		}
		seen[n] = struct{}{}
	}
	if loc := sourcesHeader.FindStringIndex(raw); loc != nil {
		for _, n := range number.FindAllString(raw[loc[1]:], -1) {
			add(n)
		}
	} else {
		for _, m := range chunkRef.FindAllStringSubmatch(raw, -1) {
			for _, n := range number.FindAllString(m[1], -1) {
				add(n)
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
