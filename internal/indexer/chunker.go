package indexer

import (
	"fmt"
	"unicode"

	"github.com/hyperjump/kotae/internal/models"
)

// Span is one passage of a document. Start and End are rune offsets into
// the chunked text; Text is exactly the runes in [Start, End).
type Span struct {
	Start int
	End   int
	Text  string
}

// Chunker splits text into overlapping passages of about size runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given size and overlap in runes.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", models.ErrInvalidConfiguration, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into passages. A passage ends at the last sentence or
// paragraph boundary in the second half of its window, else at the last
// whitespace, else after the token that overflows the window. The next
// passage starts overlap runes before the previous end, moved forward to a
// word start. Whitespace-only text yields no spans.
func (c *Chunker) Chunk(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	start := skipSpace(runes, 0)
	if start == n {
		return nil
	}

	var spans []Span
	for start < n {
		cut := n
		if n-start > c.size {
			cut = c.cutPoint(runes, start)
		}
		end := cut
		for end > start && unicode.IsSpace(runes[end-1]) {
			end--
		}
		spans = append(spans, Span{Start: start, End: end, Text: string(runes[start:end])})
		if cut >= n {
			break
		}
		start = c.nextStart(runes, start, cut)
	}
	return spans
}

// cutPoint returns the exclusive end of the window that begins at start.
// The caller guarantees start+size < len(runes).
func (c *Chunker) cutPoint(runes []rune, start int) int {
	limit := start + c.size
	minCut := start + max(c.size/2, c.overlap+1)

	for i := limit; i >= minCut; i-- {
		if isBoundary(runes, i) {
			return i
		}
	}
	for i := limit; i > start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	// One token fills the window: keep it whole.
	i := limit
	for i < len(runes) && !unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

// nextStart picks the start of the passage after [start, cut). It lies in
// (start, cut] so passages always advance and never leave a gap.
func (c *Chunker) nextStart(runes []rune, start, cut int) int {
	next := max(cut-c.overlap, start+1)
	for next < cut && !isWordStart(runes, next) {
		next++
	}
	if next >= cut {
		next = skipSpace(runes, cut)
	}
	return next
}

// isBoundary reports whether a sentence or paragraph ends just before i.
func isBoundary(runes []rune, i int) bool {
	if i <= 0 || i > len(runes) {
		return false
	}
	switch runes[i-1] {
	case '\n':
		return true
	case '.', '!', '?':
		return i == len(runes) || unicode.IsSpace(runes[i])
	}
	return false
}

func isWordStart(runes []rune, i int) bool {
	return !unicode.IsSpace(runes[i]) && (i == 0 || unicode.IsSpace(runes[i-1]))
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

// Texts returns the text of each span.
func Texts(spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}
