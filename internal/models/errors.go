package models

import "errors"

var (
	// ErrInvalidArgument covers empty text or questions and non-positive k.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidConfiguration covers inconsistent settings such as overlap >= chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrEmbeddingUnavailable means the embedding model could not be loaded or queried.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrModelTimeout means an embedding or generation call exceeded its deadline.
	ErrModelTimeout = errors.New("model timeout")
	// ErrGeneratorUnavailable means the generative model could not produce an answer.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
	// ErrNotFound is returned for unknown document ids.
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch means persisted vectors were produced by a different embedder.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
