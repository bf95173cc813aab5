package generate

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const systemPrompt = `You answer questions about an organization's documents.
Use only the numbered context passages. If they do not contain the answer, say that the documents do not cover it.
Be concise and cite passage numbers in square brackets.`

// buildPrompt numbers passages in rank order and appends the question.
func buildPrompt(question string, passages []models.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (%s) %s\n\n", i+1, p.Chunk.DocumentID, strings.TrimSpace(p.Chunk.Content))
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
