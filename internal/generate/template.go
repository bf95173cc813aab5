package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	// maxTemplateSentences bounds how many sentences a template answer quotes.
	maxTemplateSentences = 3
	answerPrefix         = "Based on the documents: "
)

// Template answers by quoting the passage sentences that share the most
// terms with the question. It needs no model and is deterministic.
type Template struct{}

// NewTemplate returns the template generator.
func NewTemplate() *Template {
	return &Template{}
}

// Strategy returns StrategyTemplate.
func (t *Template) Strategy() models.Strategy {
	return models.StrategyTemplate
}

type candidate struct {
	text    string
	overlap int
	rank    int
	pos     int
}

// Generate selects up to three sentences by term overlap with question,
// preferring higher-ranked passages and earlier sentences on ties, and
// prints them in document order. Without any overlap it quotes the top passage.
func (t *Template) Generate(ctx context.Context, question string, passages []models.ScoredChunk) (string, error) {
	if len(passages) == 0 {
		return "", fmt.Errorf("%w: no passages", models.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	want := make(map[string]struct{})
	for _, term := range utils.Terms(question) {
		want[term] = struct{}{}
	}

	var cands []candidate
	seen := make(map[string]struct{})
	for rank, p := range passages {
		for pos, sentence := range utils.SplitSentences(p.Chunk.Content) {
			// Overlapping chunks repeat sentences.
			if _, dup := seen[sentence]; dup {
				continue
			}
			seen[sentence] = struct{}{}
			if n := overlap(sentence, want); n > 0 {
				cands = append(cands, candidate{text: sentence, overlap: n, rank: rank, pos: pos})
			}
		}
	}

	if len(cands) == 0 {
		top := passages[0]
		return answerPrefix + strings.TrimSpace(top.Chunk.Content) + "\n\n" + sourceLine(passages[:1]), nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].overlap != cands[j].overlap {
			return cands[i].overlap > cands[j].overlap
		}
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		return cands[i].pos < cands[j].pos
	})
	if len(cands) > maxTemplateSentences {
		cands = cands[:maxTemplateSentences]
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		return cands[i].pos < cands[j].pos
	})

	sentences := make([]string, len(cands))
	used := make([]models.ScoredChunk, len(cands))
	for i, c := range cands {
		sentences[i] = c.text
		used[i] = passages[c.rank]
	}
	return answerPrefix + strings.Join(sentences, " ") + "\n\n" + sourceLine(used), nil
}

// overlap counts the distinct terms of sentence found in want.
func overlap(sentence string, want map[string]struct{}) int {
	n := 0
	counted := make(map[string]struct{})
	for _, term := range utils.Terms(sentence) {
		if _, ok := want[term]; !ok {
			continue
		}
		if _, ok := counted[term]; ok {
			continue
		}
		counted[term] = struct{}{}
		n++
	}
	return n
}
