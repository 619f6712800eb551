package memstore

import (
	"Mnemo_1.0/internal/models"
	"context"
	"errors"
	"testing"
	"time"
)

func TestVectorStoreQueryRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(3)

	facts := []*models.Fact{
		{ID: "a", UserID: "u1", Content: "likes coffee", Vector: []float32{1, 0, 0}},
		{ID: "b", UserID: "u1", Content: "lives in Paris", Vector: []float32{0, 1, 0}},
		{ID: "c", UserID: "u1", Content: "drinks espresso", Vector: []float32{0.9, 0.1, 0}},
	}
	for _, f := range facts {
		f.CreatedAt = time.Now()
		if err := s.Upsert(ctx, f); err != nil {
			t.Fatalf("Upsert(%s): %v", f.ID, err)
		}
	}

	got, err := s.Query(ctx, "u1", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Fact.ID != "a" || got[1].Fact.ID != "c" {
		t.Errorf("expected [a c], got [%s %s]", got[0].Fact.ID, got[1].Fact.ID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %f < %f", got[0].Score, got[1].Score)
	}
}

func TestVectorStoreQuerySkipsZeroSimilarityFacts(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(3)

	seed := []*models.Fact{
		{ID: "a", UserID: "u1", Content: "likes coffee", Vector: []float32{1, 0, 0}},
		{ID: "b", UserID: "u1", Content: "lives in Paris", Vector: []float32{0, 1, 0}},
	}
	for _, f := range seed {
		if err := s.Upsert(ctx, f); err != nil {
			t.Fatalf("Upsert(%s): %v", f.ID, err)
		}
	}

	got, err := s.Query(ctx, "u1", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Fact.ID != "a" {
		t.Errorf("an orthogonal fact is not a match, got %+v", got)
	}
}

func TestVectorStoreOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(2)

	if err := s.Upsert(ctx, &models.Fact{ID: "a", UserID: "alice", Content: "x", Vector: []float32{1, 0}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, &models.Fact{ID: "b", UserID: "bob", Content: "y", Vector: []float32{1, 0}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Query(ctx, "alice", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, sf := range got {
		if sf.Fact.UserID != "alice" {
			t.Errorf("query leaked fact %s owned by %s", sf.Fact.ID, sf.Fact.UserID)
		}
	}

	all, err := s.GetAll(ctx, "bob")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 || all[0].ID != "b" {
		t.Errorf("expected bob to see only fact b, got %+v", all)
	}
}

func TestVectorStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(3)

	err := s.Upsert(ctx, &models.Fact{ID: "a", UserID: "u1", Vector: []float32{1, 0}})
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Upsert with wrong dim: expected ErrDimensionMismatch, got %v", err)
	}

	_, err = s.Query(ctx, "u1", []float32{1, 0}, 5)
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Query with wrong dim: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestGraphStoreUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewGraphStore()

	triple := models.Triple{UserID: "u1", Subject: "alice", Predicate: "works_at", Object: "acme"}

	created, err := s.UpsertTriple(ctx, triple)
	if err != nil {
		t.Fatalf("UpsertTriple: %v", err)
	}
	if !created {
		t.Errorf("first upsert should create the edge")
	}

	created, err = s.UpsertTriple(ctx, triple)
	if err != nil {
		t.Fatalf("UpsertTriple: %v", err)
	}
	if created {
		t.Errorf("second upsert of the same triple should be a no-op")
	}

	all, err := s.GetAll(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 triple, got %d", len(all))
	}
}

func TestGraphStoreNeighborhoodHops(t *testing.T) {
	ctx := context.Background()
	s := NewGraphStore()

	// alice -> acme -> berlin, plus an unrelated island.
	seed := []models.Triple{
		{UserID: "u1", Subject: "alice", Predicate: "works_at", Object: "acme"},
		{UserID: "u1", Subject: "acme", Predicate: "located_in", Object: "berlin"},
		{UserID: "u1", Subject: "carol", Predicate: "plays", Object: "chess"},
	}
	for _, tr := range seed {
		if _, err := s.UpsertTriple(ctx, tr); err != nil {
			t.Fatalf("UpsertTriple: %v", err)
		}
	}

	oneHop, err := s.Neighborhood(ctx, "u1", []string{"alice"}, 1)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	if len(oneHop) != 1 {
		t.Fatalf("1 hop: expected 1 triple, got %d", len(oneHop))
	}

	twoHops, err := s.Neighborhood(ctx, "u1", []string{"alice"}, 2)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	if len(twoHops) != 2 {
		t.Fatalf("2 hops: expected 2 triples, got %d", len(twoHops))
	}
	for _, tr := range twoHops {
		if tr.Subject == "carol" {
			t.Errorf("unconnected triple reached: %+v", tr)
		}
	}
}

func TestGraphStoreNeighborhoodIgnoresDirection(t *testing.T) {
	ctx := context.Background()
	s := NewGraphStore()

	if _, err := s.UpsertTriple(ctx, models.Triple{UserID: "u1", Subject: "acme", Predicate: "employs", Object: "alice"}); err != nil {
		t.Fatalf("UpsertTriple: %v", err)
	}

	// alice is the object of the edge, the traversal must still find it.
	got, err := s.Neighborhood(ctx, "u1", []string{"alice"}, 1)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected the reversed edge to be reachable, got %d triples", len(got))
	}
}

func TestHistoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore()

	for i, ev := range []models.MemoryEventType{models.EventAdd, models.EventUpdate, models.EventDelete} {
		err := s.Record(ctx, &models.MemoryEvent{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			Event:     ev,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := s.Record(ctx, &models.MemoryEvent{ID: "x", UserID: "u2", Event: models.EventAdd}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.ListByOwner(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Event != models.EventDelete || got[1].Event != models.EventUpdate {
		t.Errorf("expected newest first, got [%s %s]", got[0].Event, got[1].Event)
	}
}
