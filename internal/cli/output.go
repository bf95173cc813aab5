// Package cli provides output formatting and file collection for the kotae CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q; use text or json", models.ErrInvalidArgument, s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n\n", answer.Text)
	switch {
	case answer.Fallback:
		fmt.Fprintf(w, "(%s answer; %s)\n", answer.Used, answer.FallbackReason)
	case answer.Used != "":
		fmt.Fprintf(w, "(%s answer in %dms)\n", answer.Used, answer.TookMs)
	}
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, "Passages:")
		for i, src := range answer.Sources {
			fmt.Fprintf(w, "  %d. %s#%d  score %.4f\n", i+1, src.DocumentID, src.ChunkIndex, src.Score)
		}
	}
	return nil
}

// Passage is one retrieved chunk as shown by the retrieve command.
type Passage struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// PassagesFromHits converts retrieval hits for display.
func PassagesFromHits(hits []models.ScoredChunk) []Passage {
	out := make([]Passage, 0, len(hits))
	for _, h := range hits {
		out = append(out, Passage{
			DocumentID: h.Chunk.DocumentID,
			ChunkIndex: h.Chunk.ChunkIndex,
			Content:    h.Chunk.Content,
			Score:      h.Score,
		})
	}
	return out
}

// WritePassages writes retrieved passages, best first.
func WritePassages(w io.Writer, passages []Passage, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, passages)
	}
	if len(passages) == 0 {
		fmt.Fprintln(w, "No passages found.")
		return nil
	}
	for i, p := range passages {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s#%d\n", i+1, p.Score, p.DocumentID, p.ChunkIndex)
		fmt.Fprintf(w, "\n%s\n\n", TruncateWords(p.Content, 60))
	}
	return nil
}

// StatsView is what the stats command prints.
type StatsView struct {
	models.Stats
	Strategies []models.Strategy `json:"strategies,omitempty"`
}

// WriteStats writes vector store statistics.
func WriteStats(w io.Writer, stats StatsView, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, stats)
	}
	fmt.Fprintf(w, "documents:        %d\n", stats.Documents)
	fmt.Fprintf(w, "total_chunks:     %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "dimension:        %d\n", stats.Dimension)
	if len(stats.Strategies) > 0 {
		names := make([]string, len(stats.Strategies))
		for i, s := range stats.Strategies {
			names[i] = string(s)
		}
		fmt.Fprintf(w, "strategies:       %s\n", strings.Join(names, ", "))
	}
	return nil
}

// WriteDocuments writes a document listing, one per line in text mode.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.Document{}
		}
		return WriteJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, d := range docs {
		title := d.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%-32s %4d chunks  %s  %s\n",
			d.ID, d.Chunks, d.UpdatedAt.Format("2006-01-02 15:04"), Truncate(title, 48))
	}
	return nil
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
