package models

import "time"

// Fact represents an atomic, owner-scoped piece of memory with its metadata.
// The embedding vector is generated at write time and regenerated only when
// the content changes.
type Fact struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	Vector     []float32 `json:"vector,omitempty"`
	SourceTurn string    `json:"source_turn,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScoredFact pairs a fact with its normalized similarity score. Scores are
// comparable within one store instance, higher is more similar.
type ScoredFact struct {
	Fact  *Fact   `json:"fact"`
	Score float64 `json:"score"`
}
