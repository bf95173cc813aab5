package models

// Fixed answers returned when no passage-grounded answer can be produced.
const (
	AnswerEmptyQuestion   = "Please enter a question."
	AnswerUnableToProcess = "I'm sorry, I was unable to process your question right now. Please try again later."
	AnswerNoRelevantInfo  = "I couldn't find any relevant information in the documents to answer your question."
)

// AnswerStatus tells the caller whether the answer is grounded and which path produced it.
type AnswerStatus string

const (
	StatusOK              AnswerStatus = "ok"
	StatusDegraded        AnswerStatus = "degraded"
	StatusInvalidQuestion AnswerStatus = "invalid_question"
	StatusNoResults       AnswerStatus = "no_results"
	StatusUnavailable     AnswerStatus = "unavailable"
)

// Source identifies a passage the answer was composed from.
type Source struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Answer is the result of asking a question. Used reports the strategy that
// actually ran; Fallback is set when it differs from Requested.
type Answer struct {
	ID             string       `json:"id"`
	Question       string       `json:"question"`
	Text           string       `json:"answer"`
	Status         AnswerStatus `json:"status"`
	Requested      Strategy     `json:"requested_strategy"`
	Used           Strategy     `json:"strategy,omitempty"`
	Fallback       bool         `json:"fallback"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
	Sources        []Source     `json:"sources,omitempty"`
	TookMs         int64        `json:"took_ms"`
}

// OK reports whether the answer was grounded in retrieved passages.
func (a *Answer) OK() bool {
	return a.Status == StatusOK || a.Status == StatusDegraded
}
