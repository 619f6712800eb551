package store

import (
	"Mnemo_1.0/internal/models"
	"context"
)

// VectorStore defines the interface for the owner-scoped fact index.
// Query results are ordered by descending score, where scores are
// normalized similarities in [0,1] regardless of the backend metric.
type VectorStore interface {
	// Upsert writes or replaces a fact by its ID. The fact's vector must
	// already be populated.
	Upsert(ctx context.Context, fact *models.Fact) error
	// Delete removes a fact by ID within the owner's scope.
	Delete(ctx context.Context, userID, factID string) error
	// Query returns up to topK facts of the owner ranked by similarity
	// to the given vector.
	Query(ctx context.Context, userID string, vector []float32, topK int) ([]models.ScoredFact, error)
	// GetAll returns every fact stored for the owner.
	GetAll(ctx context.Context, userID string) ([]*models.Fact, error)
	// Dim reports the vector dimension the store was created with.
	Dim() int
}

// GraphStore defines the interface for the owner-scoped entity graph.
type GraphStore interface {
	// UpsertTriple idempotently stores a (subject, predicate, object)
	// triple. It reports whether a new relationship was created.
	UpsertTriple(ctx context.Context, triple models.Triple) (bool, error)
	// Neighborhood returns the triples reachable from any of the seed
	// entities within the given number of hops, ignoring edge direction.
	Neighborhood(ctx context.Context, userID string, entities []string, hops int) ([]models.Triple, error)
	// GetAll returns every triple stored for the owner.
	GetAll(ctx context.Context, userID string) ([]models.Triple, error)
}

// HistoryStore records the decision trail of the reconciler. Failures to
// record history must never fail the reconciliation itself.
type HistoryStore interface {
	Record(ctx context.Context, event *models.MemoryEvent) error
	ListByOwner(ctx context.Context, userID string, limit int64) ([]*models.MemoryEvent, error)
}
