package extractor

import (
	"Mnemo_1.0/internal/llm"
	"Mnemo_1.0/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const extractRelationsPrompt = `
You are an advanced algorithm designed to extract structured information from text to construct knowledge graphs. Your goal is to capture comprehensive and accurate information. Follow these key principles:

1. Extract only explicitly stated information from the text.
2. Establish relationships among the entities provided.
3. Use "USER_ID" as the source entity for any self-references (e.g., "I," "me," "my," etc.) in user messages.

Relationships:
    - Use consistent, general, and timeless relationship types.
    - Example: Prefer "professor" over "became_professor."
    - Relationships should only be established among the entities explicitly mentioned in the user message.

Entity Consistency:
    - Ensure that relationships are coherent and logically align with the context of the message.
    - Maintain consistent naming for entities across the extracted data.

Return the relationships in JSON format:
{"relations": [{"source": "entity", "relationship": "relation", "target": "entity"}]}`

const extractEntitiesPrompt = `
You are a smart assistant that lists the entities mentioned in a search query. Use "USER_ID" for any self-references (e.g., "I," "me," "my," etc.). Return only entities that actually appear in the query.

Return the entities in JSON format:
{"entities": ["entity 1", "entity 2"]}`

// GraphExtractor is a TripleExtractor that asks an LLM for entity
// relationships and query entities.
type GraphExtractor struct {
	llm llm.LLM
}

// NewGraphExtractor creates a new GraphExtractor.
func NewGraphExtractor(model llm.LLM) *GraphExtractor {
	return &GraphExtractor{llm: model}
}

// ExtractTriples asks the LLM for the relationships stated in the turn.
// Self-references come back as the literal "USER_ID" and are rewritten to
// the owner's ID before the candidates leave this package.
func (e *GraphExtractor) ExtractTriples(ctx context.Context, turn models.ConversationTurn, recent []models.ConversationTurn) ([]models.Candidate, error) {
	prompt := fmt.Sprintf("%s\n\nConversation:\n%s", extractRelationsPrompt, renderConversation(turn, recent))

	resp, err := e.llm.GenerateContent(ctx, models.TextRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("relation extraction call failed: %v: %w", err, models.ErrExtractionUnavailable)
	}

	var parsed struct {
		Relations []struct {
			Source       string `json:"source"`
			Relationship string `json:"relationship"`
			Target       string `json:"target"`
		} `json:"relations"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(resp.Text())), &parsed); err != nil {
		return nil, nil
	}

	var candidates []models.Candidate
	for _, rel := range parsed.Relations {
		subject := rewriteSelfReference(rel.Source, turn.User)
		object := rewriteSelfReference(rel.Target, turn.User)
		predicate := strings.TrimSpace(rel.Relationship)
		if subject == "" || predicate == "" || object == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Kind:      models.CandidateTriple,
			Subject:   subject,
			Predicate: predicate,
			Object:    object,
		})
	}
	return candidates, nil
}

// Entities asks the LLM which entities a retrieval query mentions.
func (e *GraphExtractor) Entities(ctx context.Context, userID, query string) ([]string, error) {
	prompt := fmt.Sprintf("%s\n\nQuery:\n%s", extractEntitiesPrompt, query)

	resp, err := e.llm.GenerateContent(ctx, models.TextRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("entity recognition call failed: %v: %w", err, models.ErrExtractionUnavailable)
	}

	var parsed struct {
		Entities []string `json:"entities"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(resp.Text())), &parsed); err != nil {
		return nil, nil
	}

	var entities []string
	seen := make(map[string]bool)
	for _, entity := range parsed.Entities {
		entity = rewriteSelfReference(entity, userID)
		if entity == "" || seen[entity] {
			continue
		}
		seen[entity] = true
		entities = append(entities, entity)
	}
	return entities, nil
}

func rewriteSelfReference(entity, userID string) string {
	entity = strings.TrimSpace(entity)
	if entity == "USER_ID" {
		return userID
	}
	return entity
}
