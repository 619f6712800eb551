// Package reconciler decides how extracted candidates change the stored
// memory: add, update, delete, or nothing. All decisions for one owner run
// under that owner's lock so concurrent ingests cannot interleave between
// lookup and mutation.
package reconciler

import (
	"Mnemo_1.0/internal/config"
	"Mnemo_1.0/internal/embedding"
	"Mnemo_1.0/internal/llm"
	"Mnemo_1.0/internal/memory/store"
	"Mnemo_1.0/internal/models"
	"Mnemo_1.0/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const updateMemoryPrompt = `You are a smart memory manager which controls the memory of a system.
You can perform four operations: (1) add into the memory, (2) update the memory, (3) delete from the memory, and (4) no change.

Compare the newly retrieved fact with the existing memory element. Decide whether to:
- ADD: the fact contains new information that the existing memory element does not cover.
- UPDATE: the fact conveys the same thing as the memory element but with different or richer information. Keep the text which has the most information.
Example (a) -- if the memory contains "User likes to play cricket" and the retrieved fact is "Loves to play cricket with friends", then update the memory with the retrieved fact.
Example (b) -- if the memory contains "Likes cheese pizza" and the retrieved fact is "Loves cheese pizza", then no change is needed because they convey the same information.
- DELETE: the fact contradicts the memory element and offers no replacement, or explicitly states it is no longer true.
- NONE: the fact is already present in the memory element.

Existing memory:
%s

New fact:
%s

Return the decision in JSON format:
{"event": "ADD" | "UPDATE" | "DELETE" | "NONE", "text": "<the memory text to store for ADD or UPDATE>"}`

// memoryAction is the judgment verdict for one candidate.
type memoryAction struct {
	Event string `json:"event"`
	Text  string `json:"text"`
}

// Reconciler folds candidates into the vector and graph stores and records
// every decision in the history trail.
type Reconciler struct {
	vector   store.VectorStore
	graph    store.GraphStore
	history  store.HistoryStore
	embedder embedding.Embedding
	judge    llm.LLM
	logger   *logger.Logger

	topK            int
	similarityFloor float64
	judgmentTimeout time.Duration
	reflexive       map[string]bool
	locks           *ownerLocks
}

// NewReconciler wires a reconciler from its stores and policy config.
func NewReconciler(
	vector store.VectorStore,
	graph store.GraphStore,
	history store.HistoryStore,
	embedder embedding.Embedding,
	judge llm.LLM,
	cfg *config.EngineConfig,
	log *logger.Logger,
) (*Reconciler, error) {
	timeout, err := time.ParseDuration(cfg.JudgmentTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid judgment timeout %q: %w", cfg.JudgmentTimeout, err)
	}

	reflexive := make(map[string]bool, len(cfg.ReflexivePredicates))
	for _, p := range cfg.ReflexivePredicates {
		reflexive[strings.ToLower(p)] = true
	}

	return &Reconciler{
		vector:          vector,
		graph:           graph,
		history:         history,
		embedder:        embedder,
		judge:           judge,
		logger:          log,
		topK:            cfg.TopK,
		similarityFloor: cfg.SimilarityFloor,
		judgmentTimeout: timeout,
		reflexive:       reflexive,
		locks:           newOwnerLocks(),
	}, nil
}

// Reconcile applies the candidates of one turn to the owner's memory. The
// candidates are processed in order, each seeing the effects of the
// previous ones. A store or embedding failure aborts the call and returns
// the partial result alongside the error.
func (r *Reconciler) Reconcile(ctx context.Context, userID, sourceTurn string, candidates []models.Candidate) (*models.ReconciliationResult, error) {
	lock := r.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	result := &models.ReconciliationResult{
		Added:        []string{},
		Updated:      []string{},
		Deleted:      []string{},
		AddedTriples: []string{},
	}

	for _, candidate := range candidates {
		var err error
		switch candidate.Kind {
		case models.CandidateFact:
			err = r.reconcileFact(ctx, userID, sourceTurn, candidate, result)
		case models.CandidateTriple:
			err = r.reconcileTriple(ctx, userID, candidate, result)
		default:
			continue
		}
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

func (r *Reconciler) reconcileFact(ctx context.Context, userID, sourceTurn string, candidate models.Candidate, result *models.ReconciliationResult) error {
	text := strings.TrimSpace(candidate.Text)
	if text == "" {
		result.Noop++
		return nil
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed candidate: %w", err)
	}

	matches, err := r.vector.Query(ctx, userID, vector, r.topK)
	if err != nil {
		return fmt.Errorf("query existing facts: %w", err)
	}

	best := bestMatch(matches, r.similarityFloor)
	if best == nil {
		return r.addFact(ctx, userID, sourceTurn, text, vector, false, result)
	}

	action, err := r.judgeCandidate(ctx, best.Content, text)
	if err != nil {
		// Judgment outages never lose information: fall back to ADD and
		// mark the event so the trail shows the verdict was not earned.
		r.logger.WithOwner(userID).WithError(models.ErrorInfo{Message: err.Error()}).
			Warn("memory judgment unavailable, falling back to add")
		return r.addFact(ctx, userID, sourceTurn, text, vector, true, result)
	}

	switch action.Event {
	case string(models.EventAdd):
		return r.addFact(ctx, userID, sourceTurn, text, vector, false, result)

	case string(models.EventUpdate):
		newText := strings.TrimSpace(action.Text)
		if newText == "" {
			newText = text
		}
		newVector := vector
		if newText != text {
			if newVector, err = r.embedder.Embed(ctx, newText); err != nil {
				return fmt.Errorf("embed updated fact: %w", err)
			}
		}
		updated := &models.Fact{
			ID:         best.ID,
			UserID:     userID,
			Content:    newText,
			Vector:     newVector,
			SourceTurn: sourceTurn,
			CreatedAt:  best.CreatedAt,
			UpdatedAt:  time.Now().UTC(),
		}
		if err := r.vector.Upsert(ctx, updated); err != nil {
			return fmt.Errorf("update fact %s: %w", best.ID, err)
		}
		result.Updated = append(result.Updated, best.ID)
		r.record(ctx, &models.MemoryEvent{
			UserID: userID, FactID: best.ID, Event: models.EventUpdate,
			PrevText: best.Content, NewText: newText, SourceTurn: sourceTurn,
		})
		return nil

	case string(models.EventDelete):
		if err := r.vector.Delete(ctx, userID, best.ID); err != nil {
			return fmt.Errorf("delete fact %s: %w", best.ID, err)
		}
		result.Deleted = append(result.Deleted, best.ID)
		r.record(ctx, &models.MemoryEvent{
			UserID: userID, FactID: best.ID, Event: models.EventDelete,
			PrevText: best.Content, NewText: text, SourceTurn: sourceTurn,
		})
		return nil

	default: // NONE
		result.Noop++
		r.record(ctx, &models.MemoryEvent{
			UserID: userID, FactID: best.ID, Event: models.EventNoop,
			PrevText: best.Content, NewText: text, SourceTurn: sourceTurn,
		})
		return nil
	}
}

func (r *Reconciler) reconcileTriple(ctx context.Context, userID string, candidate models.Candidate, result *models.ReconciliationResult) error {
	triple := models.Triple{
		UserID:    userID,
		Subject:   strings.TrimSpace(candidate.Subject),
		Predicate: strings.TrimSpace(candidate.Predicate),
		Object:    strings.TrimSpace(candidate.Object),
	}
	if triple.Subject == "" || triple.Predicate == "" || triple.Object == "" {
		result.Noop++
		return nil
	}

	if triple.Reflexive() && !r.reflexive[strings.ToLower(triple.Predicate)] {
		r.logger.WithOwner(userID).WithPayload(map[string]interface{}{
			"subject": triple.Subject, "predicate": triple.Predicate,
		}).Warn("refusing self-loop triple")
		result.Noop++
		return nil
	}

	created, err := r.graph.UpsertTriple(ctx, triple)
	if err != nil {
		return fmt.Errorf("upsert triple: %w", err)
	}
	if created {
		result.AddedTriples = append(result.AddedTriples, triple.Key())
	} else {
		result.Noop++
	}
	return nil
}

// addFact inserts a brand-new fact. fallback marks that the judgment step
// did not produce the verdict.
func (r *Reconciler) addFact(ctx context.Context, userID, sourceTurn, text string, vector []float32, fallback bool, result *models.ReconciliationResult) error {
	now := time.Now().UTC()
	fact := &models.Fact{
		ID:         uuid.New().String(),
		UserID:     userID,
		Content:    text,
		Vector:     vector,
		SourceTurn: sourceTurn,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.vector.Upsert(ctx, fact); err != nil {
		return fmt.Errorf("add fact: %w", err)
	}
	result.Added = append(result.Added, fact.ID)
	r.record(ctx, &models.MemoryEvent{
		UserID: userID, FactID: fact.ID, Event: models.EventAdd,
		NewText: text, SourceTurn: sourceTurn, Fallback: fallback,
	})
	return nil
}

// judgeCandidate asks the LLM to compare the candidate against the best
// existing match, bounded by the judgment timeout.
func (r *Reconciler) judgeCandidate(ctx context.Context, existing, candidate string) (*memoryAction, error) {
	jctx, cancel := context.WithTimeout(ctx, r.judgmentTimeout)
	defer cancel()

	prompt := fmt.Sprintf(updateMemoryPrompt, existing, candidate)
	resp, err := r.judge.GenerateContent(jctx, models.TextRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("judgment call failed: %v: %w", err, models.ErrJudgmentUnavailable)
	}

	var action memoryAction
	if err := json.Unmarshal([]byte(stripJSONFences(resp.Text())), &action); err != nil {
		return nil, fmt.Errorf("unparseable judgment %q: %w", resp.Text(), models.ErrJudgmentUnavailable)
	}

	action.Event = strings.ToUpper(strings.TrimSpace(action.Event))
	switch action.Event {
	case string(models.EventAdd), string(models.EventUpdate), string(models.EventDelete), string(models.EventNoop):
		return &action, nil
	default:
		return nil, fmt.Errorf("judgment returned unknown event %q: %w", action.Event, models.ErrJudgmentUnavailable)
	}
}

// record appends to the decision trail. History failures are logged and
// swallowed, the reconciliation itself already happened.
func (r *Reconciler) record(ctx context.Context, event *models.MemoryEvent) {
	if r.history == nil {
		return
	}
	if err := r.history.Record(ctx, event); err != nil {
		r.logger.WithOwner(event.UserID).WithError(models.ErrorInfo{Message: err.Error()}).
			Warn("failed to record memory event")
	}
}

// bestMatch returns the highest-scoring fact at or above the floor. Results
// arrive sorted, but the scan tolerates stores that do not guarantee it.
func bestMatch(matches []models.ScoredFact, floor float64) *models.Fact {
	var best *models.ScoredFact
	for i := range matches {
		if matches[i].Score < floor {
			continue
		}
		if best == nil || matches[i].Score > best.Score {
			best = &matches[i]
		}
	}
	if best == nil {
		return nil
	}
	return best.Fact
}

func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
