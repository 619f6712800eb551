package service

import (
	"Mnemo_1.0/internal/config"
	"Mnemo_1.0/internal/memory/reconciler"
	"Mnemo_1.0/internal/memory/store/memstore"
	"Mnemo_1.0/internal/models"
	"Mnemo_1.0/pkg/logger"
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEmbedder struct {
	dim     int
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, f.dim)
	for i, b := range []byte(text) {
		v[i%f.dim] += float32(b)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeJudge always answers NONE; the reconciliation verdict logic has its
// own tests.
type fakeJudge struct{}

func (fakeJudge) GenerateContent(_ context.Context, _ *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	return &models.GenerateContentResponse{
		Content: []models.Content{{Role: models.SpeakerModel, Parts: []*models.Part{{Text: `{"event": "NONE"}`}}}},
	}, nil
}

type scriptedFactExtractor struct {
	facts []models.Candidate
	err   error
}

func (s *scriptedFactExtractor) ExtractFacts(_ context.Context, _ models.ConversationTurn, _ []models.ConversationTurn) ([]models.Candidate, error) {
	return s.facts, s.err
}

type scriptedGraphExtractor struct {
	triples     []models.Candidate
	entities    []string
	triplesErr  error
	entitiesErr error
}

func (s *scriptedGraphExtractor) ExtractTriples(_ context.Context, _ models.ConversationTurn, _ []models.ConversationTurn) ([]models.Candidate, error) {
	return s.triples, s.triplesErr
}

func (s *scriptedGraphExtractor) Entities(_ context.Context, _, _ string) ([]string, error) {
	return s.entities, s.entitiesErr
}

type fixture struct {
	svc    *MemoryService
	vector *memstore.VectorStore
	graph  *memstore.GraphStore
}

func newFixture(t *testing.T, factExt *scriptedFactExtractor, graphExt *scriptedGraphExtractor) *fixture {
	t.Helper()
	vector := memstore.NewVectorStore(3)
	graph := memstore.NewGraphStore()
	history := memstore.NewHistoryStore()
	embedder := &fakeEmbedder{dim: 3, vectors: map[string][]float32{
		"likes coffee":               {1, 0, 0},
		"what does the user drink?":  {1, 0, 0},
		"works at Acme headquarters": {0, 1, 0},
		"u1 works_at Acme":           {0, 1, 0},
	}}
	cfg := &config.EngineConfig{}
	cfg.ApplyDefaults()

	rec, err := reconciler.NewReconciler(vector, graph, history, embedder, fakeJudge{}, cfg, logger.New("test", "", ""))
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}

	svc, err := NewMemoryService(factExt, graphExt, vector, graph, history, rec, embedder, nil, cfg, 3, logger.New("test", "", ""))
	if err != nil {
		t.Fatalf("NewMemoryService: %v", err)
	}
	return &fixture{svc: svc, vector: vector, graph: graph}
}

func seedFact(t *testing.T, f *fixture, id, userID, content string, vector []float32) {
	t.Helper()
	now := time.Now().UTC()
	err := f.vector.Upsert(context.Background(), &models.Fact{
		ID: id, UserID: userID, Content: content, Vector: vector, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed fact: %v", err)
	}
}

func TestAddThenSearchReturnsTheFact(t *testing.T) {
	f := newFixture(t,
		&scriptedFactExtractor{facts: []models.Candidate{{Kind: models.CandidateFact, Text: "likes coffee"}}},
		&scriptedGraphExtractor{},
	)

	result, err := f.svc.AddMemory(context.Background(), models.ConversationTurn{
		Role: models.SpeakerUser, Text: "I really like coffee", User: "u1",
	})
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}
	if len(result.Added) != 1 {
		t.Fatalf("expected one added fact, got %+v", result)
	}

	search, err := f.svc.SearchMemory(context.Background(), "u1", "what does the user drink?", 5)
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(search.Facts) != 1 || search.Facts[0].Content != "likes coffee" {
		t.Errorf("expected the ingested fact back, got %+v", search.Facts)
	}
}

func TestConstructionRejectsDimensionMismatch(t *testing.T) {
	vector := memstore.NewVectorStore(3)
	cfg := &config.EngineConfig{}
	cfg.ApplyDefaults()

	rec, err := reconciler.NewReconciler(vector, memstore.NewGraphStore(), memstore.NewHistoryStore(),
		&fakeEmbedder{dim: 3}, fakeJudge{}, cfg, logger.New("test", "", ""))
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}

	_, err = NewMemoryService(&scriptedFactExtractor{}, &scriptedGraphExtractor{}, vector,
		memstore.NewGraphStore(), nil, rec, &fakeEmbedder{dim: 768}, nil, cfg, 768, logger.New("test", "", ""))
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchIsOwnerScoped(t *testing.T) {
	f := newFixture(t,
		&scriptedFactExtractor{facts: []models.Candidate{{Kind: models.CandidateFact, Text: "likes coffee"}}},
		&scriptedGraphExtractor{},
	)

	if _, err := f.svc.AddMemory(context.Background(), models.ConversationTurn{
		Role: models.SpeakerUser, Text: "I really like coffee", User: "alice",
	}); err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	search, err := f.svc.SearchMemory(context.Background(), "bob", "what does the user drink?", 5)
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(search.Facts) != 0 || len(search.Triples) != 0 {
		t.Errorf("bob must not see alice's memory, got %+v", search)
	}
}

func TestSearchAppendsGraphDerivedFactsAfterVectorMatches(t *testing.T) {
	f := newFixture(t, &scriptedFactExtractor{}, &scriptedGraphExtractor{entities: []string{"u1"}})

	seedFact(t, f, "direct", "u1", "likes coffee", []float32{1, 0, 0})
	seedFact(t, f, "derived", "u1", "works at Acme headquarters", []float32{0, 1, 0})
	if _, err := f.graph.UpsertTriple(context.Background(), models.Triple{
		UserID: "u1", Subject: "u1", Predicate: "works_at", Object: "Acme",
	}); err != nil {
		t.Fatalf("UpsertTriple: %v", err)
	}

	search, err := f.svc.SearchMemory(context.Background(), "u1", "what does the user drink?", 2)
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(search.Facts) != 2 {
		t.Fatalf("expected direct plus graph-derived fact, got %+v", search.Facts)
	}
	if search.Facts[0].ID != "direct" || search.Facts[1].ID != "derived" {
		t.Errorf("graph-derived facts must rank after vector matches, got [%s %s]",
			search.Facts[0].ID, search.Facts[1].ID)
	}
	if len(search.Triples) != 1 {
		t.Errorf("expected the neighborhood triple, got %+v", search.Triples)
	}
}

func TestSearchHonorsLimitWhenGraphAddsFacts(t *testing.T) {
	f := newFixture(t, &scriptedFactExtractor{}, &scriptedGraphExtractor{entities: []string{"u1"}})

	seedFact(t, f, "direct", "u1", "likes coffee", []float32{1, 0, 0})
	seedFact(t, f, "derived", "u1", "works at Acme headquarters", []float32{0, 1, 0})
	if _, err := f.graph.UpsertTriple(context.Background(), models.Triple{
		UserID: "u1", Subject: "u1", Predicate: "works_at", Object: "Acme",
	}); err != nil {
		t.Fatalf("UpsertTriple: %v", err)
	}

	search, err := f.svc.SearchMemory(context.Background(), "u1", "what does the user drink?", 1)
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(search.Facts) != 1 {
		t.Fatalf("limit=1 must cap the merged list at one fact, got %+v", search.Facts)
	}
	if search.Facts[0].ID != "direct" {
		t.Errorf("the direct vector match must win the single seat, got %s", search.Facts[0].ID)
	}
	if len(search.Triples) != 1 {
		t.Errorf("the neighborhood triple is still reported, got %+v", search.Triples)
	}
}

func TestSearchDeduplicatesMergedFacts(t *testing.T) {
	f := newFixture(t, &scriptedFactExtractor{}, &scriptedGraphExtractor{entities: []string{"u1"}})

	seedFact(t, f, "direct", "u1", "likes coffee", []float32{1, 0, 0})
	if _, err := f.graph.UpsertTriple(context.Background(), models.Triple{
		// The expansion vector points straight back at the direct match.
		UserID: "u1", Subject: "u1", Predicate: "likes", Object: "coffee",
	}); err != nil {
		t.Fatalf("UpsertTriple: %v", err)
	}

	search, err := f.svc.SearchMemory(context.Background(), "u1", "what does the user drink?", 5)
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(search.Facts) != 1 {
		t.Errorf("a fact reachable both ways must appear once, got %+v", search.Facts)
	}
}

func TestSearchSurvivesEntityRecognitionOutage(t *testing.T) {
	f := newFixture(t, &scriptedFactExtractor{},
		&scriptedGraphExtractor{entitiesErr: errors.New("model overloaded")})

	seedFact(t, f, "direct", "u1", "likes coffee", []float32{1, 0, 0})

	search, err := f.svc.SearchMemory(context.Background(), "u1", "what does the user drink?", 5)
	if err != nil {
		t.Fatalf("graph outage must not fail retrieval: %v", err)
	}
	if len(search.Facts) != 1 {
		t.Errorf("expected vector results despite graph outage, got %+v", search.Facts)
	}
}

func TestAddSurfacesExtractionOutage(t *testing.T) {
	f := newFixture(t,
		&scriptedFactExtractor{err: models.ErrExtractionUnavailable},
		&scriptedGraphExtractor{},
	)

	_, err := f.svc.AddMemory(context.Background(), models.ConversationTurn{
		Role: models.SpeakerUser, Text: "hello", User: "u1",
	})
	if !errors.Is(err, models.ErrExtractionUnavailable) {
		t.Errorf("expected ErrExtractionUnavailable, got %v", err)
	}
}

func TestAddRequiresOwner(t *testing.T) {
	f := newFixture(t, &scriptedFactExtractor{}, &scriptedGraphExtractor{})

	if _, err := f.svc.AddMemory(context.Background(), models.ConversationTurn{
		Role: models.SpeakerUser, Text: "hello",
	}); err == nil {
		t.Errorf("expected an error for a turn without an owner")
	}
}

func TestGetAllMemoryReturnsFactsAndTriples(t *testing.T) {
	f := newFixture(t,
		&scriptedFactExtractor{facts: []models.Candidate{{Kind: models.CandidateFact, Text: "likes coffee"}}},
		&scriptedGraphExtractor{triples: []models.Candidate{
			{Kind: models.CandidateTriple, Subject: "u1", Predicate: "works_at", Object: "Acme"},
		}},
	)

	if _, err := f.svc.AddMemory(context.Background(), models.ConversationTurn{
		Role: models.SpeakerUser, Text: "I like coffee and work at Acme", User: "u1",
	}); err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	all, err := f.svc.GetAllMemory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetAllMemory: %v", err)
	}
	if len(all.Facts) != 1 || len(all.Triples) != 1 {
		t.Errorf("expected 1 fact and 1 triple, got %d and %d", len(all.Facts), len(all.Triples))
	}
}
