package store

import (
	"Mnemo_1.0/internal/database/milvus"
	"Mnemo_1.0/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// retryBackoff is the pause before the single retry of a failed store call.
const retryBackoff = 200 * time.Millisecond

// MilvusFactStore is a VectorStore backed by a Milvus collection. Owner
// isolation is enforced with a filter expression on every read, so no query
// can cross user boundaries even if the caller forgets to check.
type MilvusFactStore struct {
	client *milvus.MilvusClient
	dim    int
}

// NewMilvusFactStore creates a MilvusFactStore over an initialized client.
func NewMilvusFactStore(c *milvus.MilvusClient) *MilvusFactStore {
	return &MilvusFactStore{client: c, dim: c.Config.Dim}
}

func (s *MilvusFactStore) Dim() int { return s.dim }

// Upsert writes or replaces a fact by its primary key.
func (s *MilvusFactStore) Upsert(ctx context.Context, fact *models.Fact) error {
	if len(fact.Vector) != s.dim {
		return fmt.Errorf("fact %s has vector of length %d, store expects %d: %w",
			fact.ID, len(fact.Vector), s.dim, models.ErrDimensionMismatch)
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(milvus.FieldID, []string{fact.ID}),
		entity.NewColumnVarChar(milvus.FieldUserID, []string{fact.UserID}),
		entity.NewColumnVarChar(milvus.FieldContent, []string{fact.Content}),
		entity.NewColumnVarChar(milvus.FieldSourceTurn, []string{fact.SourceTurn}),
		entity.NewColumnInt64(milvus.FieldCreatedAt, []int64{fact.CreatedAt.Unix()}),
		entity.NewColumnInt64(milvus.FieldUpdatedAt, []int64{fact.UpdatedAt.Unix()}),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, s.dim, [][]float32{fact.Vector}),
	}

	err := withRetry(ctx, func() error {
		return s.client.Upsert(ctx, columns...)
	})
	if err != nil {
		return fmt.Errorf("upsert fact %s: %v: %w", fact.ID, err, models.ErrStoreUnavailable)
	}
	return nil
}

// Delete removes a fact by ID, scoped to the owner.
func (s *MilvusFactStore) Delete(ctx context.Context, userID, factID string) error {
	expr := fmt.Sprintf(`%s == "%s" && %s == "%s"`,
		milvus.FieldID, escapeExpr(factID), milvus.FieldUserID, escapeExpr(userID))
	err := withRetry(ctx, func() error {
		return s.client.Delete(ctx, expr)
	})
	if err != nil {
		return fmt.Errorf("delete fact %s: %v: %w", factID, err, models.ErrStoreUnavailable)
	}
	return nil
}

// Query returns the owner's topK most similar facts with normalized scores.
func (s *MilvusFactStore) Query(ctx context.Context, userID string, vector []float32, topK int) ([]models.ScoredFact, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("query vector of length %d, store expects %d: %w",
			len(vector), s.dim, models.ErrDimensionMismatch)
	}

	expr := ownerExpr(userID)
	var results []client.SearchResult
	err := withRetry(ctx, func() error {
		var serr error
		results, serr = s.client.Search(ctx, vector, topK, expr)
		return serr
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %v: %w", err, models.ErrStoreUnavailable)
	}

	var scored []models.ScoredFact
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			fact, err := factFromResult(result.IDs, result.Fields, i)
			if err != nil {
				return nil, err
			}
			if fact.UserID != userID {
				return nil, fmt.Errorf("search returned fact %s owned by %q, wanted %q: %w",
					fact.ID, fact.UserID, userID, models.ErrOwnerScope)
			}
			scored = append(scored, models.ScoredFact{
				Fact:  fact,
				Score: normalizeScore(s.client.Config.MetricType, result.Scores[i]),
			})
		}
	}
	return scored, nil
}

// GetAll returns every fact of the owner.
func (s *MilvusFactStore) GetAll(ctx context.Context, userID string) ([]*models.Fact, error) {
	var rs client.ResultSet
	err := withRetry(ctx, func() error {
		var qerr error
		rs, qerr = s.client.QueryAll(ctx, ownerExpr(userID))
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("query all facts: %v: %w", err, models.ErrStoreUnavailable)
	}

	ids := rs.GetColumn(milvus.FieldID)
	if ids == nil || ids.Len() == 0 {
		return nil, nil
	}
	facts := make([]*models.Fact, 0, ids.Len())
	for i := 0; i < ids.Len(); i++ {
		fact, err := factFromResult(ids, rs, i)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// factFromResult reads one row of scalar columns into a Fact.
func factFromResult(ids entity.Column, fields client.ResultSet, i int) (*models.Fact, error) {
	id, err := ids.GetAsString(i)
	if err != nil {
		return nil, fmt.Errorf("read fact id: %w", err)
	}
	userID, _ := fields.GetColumn(milvus.FieldUserID).GetAsString(i)
	content, _ := fields.GetColumn(milvus.FieldContent).GetAsString(i)
	sourceTurn, _ := fields.GetColumn(milvus.FieldSourceTurn).GetAsString(i)
	createdAt, _ := fields.GetColumn(milvus.FieldCreatedAt).GetAsInt64(i)
	updatedAt, _ := fields.GetColumn(milvus.FieldUpdatedAt).GetAsInt64(i)

	return &models.Fact{
		ID:         id,
		UserID:     userID,
		Content:    content,
		SourceTurn: sourceTurn,
		CreatedAt:  time.Unix(createdAt, 0),
		UpdatedAt:  time.Unix(updatedAt, 0),
	}, nil
}

// normalizeScore maps a backend score to a higher-is-better value in [0,1].
// COSINE and IP scores are already similarities; L2 is a distance.
func normalizeScore(metricType string, score float32) float64 {
	switch metricType {
	case "L2":
		return 1.0 / (1.0 + float64(score))
	default:
		s := float64(score)
		if s < 0 {
			return 0
		}
		if s > 1 {
			return 1
		}
		return s
	}
}

func ownerExpr(userID string) string {
	return fmt.Sprintf(`%s == "%s"`, milvus.FieldUserID, escapeExpr(userID))
}

// escapeExpr escapes a string literal for a Milvus filter expression.
func escapeExpr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// withRetry runs fn and retries once after a short pause. Context
// cancellation is not retried.
func withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
	}
	return fn()
}
