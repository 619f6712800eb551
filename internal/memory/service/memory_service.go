// Package service implements the memory engine: ingesting conversation
// turns into reconciled memory and retrieving it through the hybrid
// vector/graph search.
package service

import (
	"Mnemo_1.0/internal/config"
	"Mnemo_1.0/internal/embedding"
	"Mnemo_1.0/internal/memory/extractor"
	"Mnemo_1.0/internal/memory/reconciler"
	"Mnemo_1.0/internal/memory/store"
	"Mnemo_1.0/internal/memory/window"
	"Mnemo_1.0/internal/models"
	"Mnemo_1.0/pkg/logger"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryService orchestrates extraction, reconciliation and retrieval. It
// runs no background goroutines: every call does its work and returns.
type MemoryService struct {
	factExtractor  extractor.FactExtractor
	graphExtractor extractor.TripleExtractor
	vecStore       store.VectorStore
	graphStore     store.GraphStore
	history        store.HistoryStore
	reconciler     *reconciler.Reconciler
	embedder       embedding.Embedding
	window         *window.TurnWindow
	logger         *logger.Logger

	topK         int
	graphHops    int
	graphExpandK int
}

// NewMemoryService wires the engine. The expected embedding dimension is
// checked against the vector store up front: a mismatch is a deployment
// error that must fail construction, not the first write.
func NewMemoryService(
	factExtractor extractor.FactExtractor,
	graphExtractor extractor.TripleExtractor,
	vecStore store.VectorStore,
	graphStore store.GraphStore,
	history store.HistoryStore,
	rec *reconciler.Reconciler,
	embedder embedding.Embedding,
	turnWindow *window.TurnWindow,
	cfg *config.EngineConfig,
	embeddingDim int,
	log *logger.Logger,
) (*MemoryService, error) {
	if embeddingDim != vecStore.Dim() {
		return nil, fmt.Errorf("embedding model produces %d dimensions, vector store expects %d: %w",
			embeddingDim, vecStore.Dim(), models.ErrDimensionMismatch)
	}

	return &MemoryService{
		factExtractor:  factExtractor,
		graphExtractor: graphExtractor,
		vecStore:       vecStore,
		graphStore:     graphStore,
		history:        history,
		reconciler:     rec,
		embedder:       embedder,
		window:         turnWindow,
		logger:         log,
		topK:           cfg.TopK,
		graphHops:      cfg.GraphHops,
		graphExpandK:   cfg.GraphExpandK,
	}, nil
}

// AddMemory ingests one conversation turn: extracts fact and triple
// candidates in parallel, reconciles them against the owner's memory, and
// appends the turn to the recent window.
func (s *MemoryService) AddMemory(ctx context.Context, turn models.ConversationTurn) (*models.ReconciliationResult, error) {
	userID := strings.TrimSpace(turn.User)
	if userID == "" {
		return nil, fmt.Errorf("conversation turn has no owner")
	}
	log := s.logger.WithOwner(userID)
	sourceTurn := uuid.New().String()

	recent := s.recentTurns(ctx, userID)

	// Fact and triple extraction are independent LLM calls, run them
	// concurrently.
	var facts, triples []models.Candidate
	var errFacts, errTriples error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		facts, errFacts = s.factExtractor.ExtractFacts(ctx, turn, recent)
	}()
	go func() {
		defer wg.Done()
		triples, errTriples = s.graphExtractor.ExtractTriples(ctx, turn, recent)
	}()
	wg.Wait()

	if errFacts != nil {
		log.WithError(models.ErrorInfo{Message: errFacts.Error()}).Error("failed to extract facts")
		return nil, fmt.Errorf("failed to extract facts: %w", errFacts)
	}
	if errTriples != nil {
		log.WithError(models.ErrorInfo{Message: errTriples.Error()}).Error("failed to extract relations")
		return nil, fmt.Errorf("failed to extract relations: %w", errTriples)
	}

	candidates := append(facts, triples...)
	result := &models.ReconciliationResult{Added: []string{}, Updated: []string{}, Deleted: []string{}, AddedTriples: []string{}}
	if len(candidates) > 0 {
		var err error
		result, err = s.reconciler.Reconcile(ctx, userID, sourceTurn, candidates)
		if err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error()}).Error("reconciliation failed")
			return result, fmt.Errorf("reconciliation failed: %w", err)
		}
	}

	s.appendTurn(ctx, userID, turn)

	log.WithPayload(map[string]interface{}{
		"added": len(result.Added), "updated": len(result.Updated),
		"deleted": len(result.Deleted), "triples": len(result.AddedTriples), "noop": result.Noop,
	}).Info("memory reconciled")
	return result, nil
}

// SearchMemory retrieves the owner's memory relevant to the query: the
// vector top-k first, then facts reached through the query's entity
// neighborhood, plus the raw neighborhood triples.
func (s *MemoryService) SearchMemory(ctx context.Context, userID, query string, topK int) (*models.SearchResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("search has no owner")
	}
	if topK <= 0 {
		topK = s.topK
	}
	log := s.logger.WithOwner(userID)

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.vecStore.Query(ctx, userID, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	result := &models.SearchResult{Facts: []*models.Fact{}, Triples: []*models.Triple{}}
	seen := make(map[string]bool)
	for _, sf := range scored {
		seen[sf.Fact.ID] = true
		result.Facts = append(result.Facts, sf.Fact)
	}

	// The graph side degrades gracefully: a failed entity recognition or
	// traversal still leaves the vector results intact.
	entities, err := s.graphExtractor.Entities(ctx, userID, query)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("entity recognition failed, skipping graph retrieval")
		return result, nil
	}

	triples, err := s.graphStore.Neighborhood(ctx, userID, entities, s.graphHops)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("graph traversal failed, skipping graph retrieval")
		return result, nil
	}

	for i := range triples {
		triple := triples[i]
		result.Triples = append(result.Triples, &triple)
		// Each neighborhood edge seeds a small secondary fact lookup, so
		// facts about related entities surface even when the query text
		// does not mention them. They rank after the direct matches.
		expansion, err := s.expandTriple(ctx, userID, &triple)
		if err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("graph expansion lookup failed")
			continue
		}
		for _, fact := range expansion {
			if seen[fact.ID] {
				continue
			}
			seen[fact.ID] = true
			result.Facts = append(result.Facts, fact)
		}
	}

	// The caller's limit bounds the merged list: graph-derived facts only
	// fill seats the direct matches left open.
	if len(result.Facts) > topK {
		result.Facts = result.Facts[:topK]
	}
	return result, nil
}

// GetAllMemory returns everything stored for the owner.
func (s *MemoryService) GetAllMemory(ctx context.Context, userID string) (*models.SearchResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("listing has no owner")
	}

	facts, err := s.vecStore.GetAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	triples, err := s.graphStore.GetAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list triples: %w", err)
	}

	result := &models.SearchResult{Facts: facts, Triples: make([]*models.Triple, 0, len(triples))}
	if result.Facts == nil {
		result.Facts = []*models.Fact{}
	}
	for i := range triples {
		triple := triples[i]
		result.Triples = append(result.Triples, &triple)
	}
	return result, nil
}

// History returns the owner's most recent reconciliation events.
func (s *MemoryService) History(ctx context.Context, userID string, limit int64) ([]*models.MemoryEvent, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListByOwner(ctx, userID, limit)
}

// expandTriple embeds the triple as plain text and looks up the closest
// facts around it.
func (s *MemoryService) expandTriple(ctx context.Context, userID string, triple *models.Triple) ([]*models.Fact, error) {
	text := fmt.Sprintf("%s %s %s", triple.Subject, triple.Predicate, triple.Object)
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	scored, err := s.vecStore.Query(ctx, userID, vector, s.graphExpandK)
	if err != nil {
		return nil, err
	}
	facts := make([]*models.Fact, 0, len(scored))
	for _, sf := range scored {
		facts = append(facts, sf.Fact)
	}
	return facts, nil
}

func (s *MemoryService) recentTurns(ctx context.Context, userID string) []models.ConversationTurn {
	if s.window == nil {
		return nil
	}
	recent, err := s.window.Recent(ctx, userID)
	if err != nil {
		s.logger.WithOwner(userID).WithError(models.ErrorInfo{Message: err.Error()}).
			Warn("failed to read recent turns, extracting without context")
		return nil
	}
	return recent
}

func (s *MemoryService) appendTurn(ctx context.Context, userID string, turn models.ConversationTurn) {
	if s.window == nil {
		return
	}
	if err := s.window.Append(ctx, userID, turn); err != nil {
		s.logger.WithOwner(userID).WithError(models.ErrorInfo{Message: err.Error()}).
			Warn("failed to append turn to window")
	}
}
