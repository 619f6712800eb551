// Package memstore provides in-process implementations of the store
// interfaces. They behave like the Milvus and Neo4j stores on a single node
// and back the engine's tests.
package memstore

import (
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// VectorStore is an in-memory fact index using exact cosine similarity.
type VectorStore struct {
	mu    sync.RWMutex
	dim   int
	facts map[string]map[string]*models.Fact // userID -> factID -> fact
}

// NewVectorStore creates an empty store for vectors of the given dimension.
func NewVectorStore(dim int) *VectorStore {
	return &VectorStore{dim: dim, facts: make(map[string]map[string]*models.Fact)}
}

func (s *VectorStore) Dim() int { return s.dim }

func (s *VectorStore) Upsert(_ context.Context, fact *models.Fact) error {
	if len(fact.Vector) != s.dim {
		return fmt.Errorf("fact %s has vector of length %d, store expects %d: %w",
			fact.ID, len(fact.Vector), s.dim, models.ErrDimensionMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := s.facts[fact.UserID]
	if owner == nil {
		owner = make(map[string]*models.Fact)
		s.facts[fact.UserID] = owner
	}
	cp := *fact
	cp.Vector = append([]float32(nil), fact.Vector...)
	owner[fact.ID] = &cp
	return nil
}

func (s *VectorStore) Delete(_ context.Context, userID, factID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.facts[userID], factID)
	return nil
}

func (s *VectorStore) Query(_ context.Context, userID string, vector []float32, topK int) ([]models.ScoredFact, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("query vector of length %d, store expects %d: %w",
			len(vector), s.dim, models.ErrDimensionMismatch)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []models.ScoredFact
	for _, fact := range s.facts[userID] {
		score := cosine(vector, fact.Vector)
		if score == 0 {
			// No similarity signal at all is not a match.
			continue
		}
		cp := *fact
		scored = append(scored, models.ScoredFact{Fact: &cp, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *VectorStore) GetAll(_ context.Context, userID string) ([]*models.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts := make([]*models.Fact, 0, len(s.facts[userID]))
	for _, fact := range s.facts[userID] {
		cp := *fact
		facts = append(facts, &cp)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].CreatedAt.Before(facts[j].CreatedAt) })
	return facts, nil
}

// cosine maps the similarity into [0,1] the same way the Milvus store
// normalizes COSINE scores.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// GraphStore is an in-memory triple set with BFS neighborhood traversal.
type GraphStore struct {
	mu      sync.RWMutex
	triples map[string]map[string]models.Triple // userID -> triple key -> triple
}

// NewGraphStore creates an empty graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{triples: make(map[string]map[string]models.Triple)}
}

func (s *GraphStore) UpsertTriple(_ context.Context, triple models.Triple) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := s.triples[triple.UserID]
	if owner == nil {
		owner = make(map[string]models.Triple)
		s.triples[triple.UserID] = owner
	}
	key := triple.Key()
	if _, ok := owner[key]; ok {
		return false, nil
	}
	owner[key] = triple
	return true, nil
}

func (s *GraphStore) Neighborhood(_ context.Context, userID string, entities []string, hops int) ([]models.Triple, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if hops < 1 {
		hops = 1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner := s.triples[userID]
	// Frontier of entity names, expanded one hop at a time in both edge
	// directions.
	visited := make(map[string]bool, len(entities))
	frontier := make([]string, 0, len(entities))
	for _, e := range entities {
		if !visited[e] {
			visited[e] = true
			frontier = append(frontier, e)
		}
	}

	found := make(map[string]models.Triple)
	for hop := 0; hop < hops && len(frontier) > 0; hop++ {
		var next []string
		for _, triple := range owner {
			fromSubject := containsEntity(frontier, triple.Subject)
			fromObject := containsEntity(frontier, triple.Object)
			if !fromSubject && !fromObject {
				continue
			}
			found[triple.Key()] = triple
			if fromSubject && !visited[triple.Object] {
				visited[triple.Object] = true
				next = append(next, triple.Object)
			}
			if fromObject && !visited[triple.Subject] {
				visited[triple.Subject] = true
				next = append(next, triple.Subject)
			}
		}
		frontier = next
	}

	return sortedTriples(found), nil
}

func (s *GraphStore) GetAll(_ context.Context, userID string) ([]models.Triple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedTriples(s.triples[userID]), nil
}

func containsEntity(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func sortedTriples(set map[string]models.Triple) []models.Triple {
	triples := make([]models.Triple, 0, len(set))
	for _, t := range set {
		triples = append(triples, t)
	}
	sort.Slice(triples, func(i, j int) bool { return triples[i].Key() < triples[j].Key() })
	return triples
}

// HistoryStore is an in-memory decision trail.
type HistoryStore struct {
	mu     sync.Mutex
	events []*models.MemoryEvent
}

// NewHistoryStore creates an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Record(_ context.Context, event *models.MemoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *HistoryStore) ListByOwner(_ context.Context, userID string, limit int64) ([]*models.MemoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []*models.MemoryEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].UserID != userID {
			continue
		}
		cp := *s.events[i]
		events = append(events, &cp)
		if limit > 0 && int64(len(events)) >= limit {
			break
		}
	}
	return events, nil
}
