package models

import (
	"fmt"
	"strings"
)

// Strategy selects how an answer is composed from retrieved passages.
type Strategy string

const (
	// StrategyTemplate composes the answer from passage text without any model.
	StrategyTemplate Strategy = "template"
	// StrategyGenerative feeds the passages to a generative language model.
	StrategyGenerative Strategy = "generative"
)

// StrategyFromAdvanced maps the boolean "advanced generation" flag to a Strategy.
func StrategyFromAdvanced(advanced bool) Strategy {
	if advanced {
		return StrategyGenerative
	}
	return StrategyTemplate
}

// ParseStrategy accepts canonical names and the aliases used by the front ends.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "template", "basic":
		return StrategyTemplate, nil
	case "generative", "advanced", "llm":
		return StrategyGenerative, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidArgument, s)
	}
}

// Question is a request to the query engine.
type Question struct {
	Text     string   `json:"question"`
	Strategy Strategy `json:"strategy,omitempty"`
	TopK     int      `json:"top_k,omitempty"`
}

// Validate trims the question and fills defaults. It returns ErrInvalidArgument
// for blank questions and negative k.
func (q *Question) Validate() error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return fmt.Errorf("%w: question cannot be empty", ErrInvalidArgument)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidArgument)
	}
	if q.Strategy == "" {
		q.Strategy = StrategyTemplate
	}
	return nil
}
