package search

import (
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// ProcessQuestion validates q and applies the query defaults: top_k and the
// default strategy. Strategy aliases are normalized.
func ProcessQuestion(q *models.Question, cfg config.QueryConfig) error {
	raw := string(q.Strategy)
	if raw == "" {
		raw = cfg.DefaultStrategy
	}
	if err := q.Validate(); err != nil {
		return err
	}
	if q.TopK == 0 {
		q.TopK = cfg.TopK
	}
	strategy, err := models.ParseStrategy(raw)
	if err != nil {
		return err
	}
	q.Strategy = strategy
	return nil
}
