package models

import "errors"

// Typed failure classes of the memory engine. Callers distinguish them with
// errors.Is; adapters wrap the underlying cause with fmt.Errorf("...: %w").
var (
	// ErrExtractionUnavailable means the LLM capability failed or was blocked
	// during extraction. Recoverable: the turn yields an empty candidate set.
	ErrExtractionUnavailable = errors.New("extraction unavailable")

	// ErrJudgmentUnavailable means the reconciliation judgment step failed,
	// timed out or returned an unusable decision. Recoverable: the candidate
	// is added anyway.
	ErrJudgmentUnavailable = errors.New("judgment unavailable")

	// ErrStoreUnavailable means the vector or graph adapter is unreachable
	// after retry. The current call fails; nothing is silently dropped.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDimensionMismatch means the configured embedding width does not
	// match the vector store schema. Fatal at startup or on write.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrOwnerScope means a result crossed owner boundaries. This is a
	// programming error and is raised, never returned as data.
	ErrOwnerScope = errors.New("owner scope violation")
)
