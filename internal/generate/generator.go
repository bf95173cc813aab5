// Package generate composes answers from retrieved passages, either from the
// passage text itself or through a generative language model.
package generate

import (
	"context"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Generator turns a question and its ranked passages into answer text.
// Passages arrive in descending score order and are never empty.
type Generator interface {
	Strategy() models.Strategy
	Generate(ctx context.Context, question string, passages []models.ScoredChunk) (string, error)
}

// sourceLine lists the distinct documents of passages in the given order.
func sourceLine(passages []models.ScoredChunk) string {
	seen := make(map[string]struct{}, len(passages))
	ids := make([]string, 0, len(passages))
	for _, p := range passages {
		if _, ok := seen[p.Chunk.DocumentID]; ok {
			continue
		}
		seen[p.Chunk.DocumentID] = struct{}{}
		ids = append(ids, p.Chunk.DocumentID)
	}
	return "Sources: " + strings.Join(ids, ", ")
}
