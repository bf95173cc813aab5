package generate

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter counts model tokens in text.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateCounter approximates four characters per token.
type EstimateCounter struct{}

// Count returns the rune count divided by four, rounded up.
func (EstimateCounter) Count(text string) int {
	return (len([]rune(text)) + 3) / 4
}

// NewTokenCounter returns a tiktoken counter for encoding. An empty encoding,
// or one that cannot be loaded, yields the EstimateCounter.
func NewTokenCounter(encoding string, logger *zap.Logger) TokenCounter {
	if encoding == "" {
		return EstimateCounter{}
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		utils.OrNop(logger).Warn("tiktoken encoding unavailable, estimating tokens",
			zap.String("encoding", encoding), zap.Error(err))
		return EstimateCounter{}
	}
	return tiktokenCounter{enc: enc}
}

// FitPassages returns the longest rank-order prefix of passages whose
// contents fit in budget tokens. When even the top passage is too long it is
// cut at a sentence boundary and returned alone.
func FitPassages(passages []models.ScoredChunk, budget int, counter TokenCounter) ([]models.ScoredChunk, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: context budget must be positive", models.ErrInvalidConfiguration)
	}
	if len(passages) == 0 {
		return nil, nil
	}
	var out []models.ScoredChunk
	used := 0
	for _, p := range passages {
		n := counter.Count(p.Chunk.Content)
		if used+n > budget {
			break
		}
		used += n
		out = append(out, p)
	}
	if len(out) > 0 {
		return out, nil
	}

	top := passages[0]
	top.Chunk.Content = cutToBudget(top.Chunk.Content, budget, counter)
	return []models.ScoredChunk{top}, nil
}

// cutToBudget keeps whole leading sentences of text within budget tokens.
// When the first sentence alone is too long, it keeps the longest rune prefix that fits.
func cutToBudget(text string, budget int, counter TokenCounter) string {
	var kept []string
	for _, s := range utils.SplitSentences(text) {
		next := strings.Join(append(kept, s), " ")
		if counter.Count(next) > budget {
			break
		}
		kept = append(kept, s)
	}
	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}

	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if counter.Count(string(runes[:mid])) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}
