package extractor

import (
	"Mnemo_1.0/internal/llm"
	"Mnemo_1.0/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const extractFactsPrompt = `
You are a Personal Information Organizer, specialized in accurately storing facts, user memories, and preferences. Your primary role is to extract relevant pieces of information from conversations and organize them into distinct, manageable facts.

Types of information to remember:
1. Personal preferences: likes, dislikes, and specific preferences.
2. Personal details: names, relationships, and important dates.
3. Plans and intentions: upcoming events, trips, and goals.
4. Activity and service preferences: dining, travel, hobbies, and other services.
5. Health and wellness: dietary restrictions, fitness routines, and conditions.
6. Professional details: job titles, work habits, and career goals.

Guidelines:
- Extract facts only from the latest message; earlier turns are context for resolving references.
- Each fact must be a single, self-contained statement.
- Do not return anything from the example prompts above.
- If the message contains no information worth remembering, return an empty list.
- Detect the language of the user input and record the facts in the same language.

Return the facts in JSON format:
{"facts": ["fact 1", "fact 2"]}`

// LlmExtractor is a FactExtractor that asks an LLM to distill facts from
// the conversation.
type LlmExtractor struct {
	llm llm.LLM
}

// NewLlmExtractor creates a new LlmExtractor.
func NewLlmExtractor(model llm.LLM) *LlmExtractor {
	return &LlmExtractor{llm: model}
}

// ExtractFacts asks the LLM for the facts stated in the turn. A model reply
// that cannot be parsed is treated as an empty extraction; a failed call is
// reported as an extraction outage.
func (e *LlmExtractor) ExtractFacts(ctx context.Context, turn models.ConversationTurn, recent []models.ConversationTurn) ([]models.Candidate, error) {
	prompt := fmt.Sprintf("%s\n\nConversation:\n%s", extractFactsPrompt, renderConversation(turn, recent))

	resp, err := e.llm.GenerateContent(ctx, models.TextRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("fact extraction call failed: %v: %w", err, models.ErrExtractionUnavailable)
	}

	var parsed struct {
		Facts []string `json:"facts"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(resp.Text())), &parsed); err != nil {
		// Malformed model output yields no candidates rather than an error.
		return nil, nil
	}

	var candidates []models.Candidate
	for _, fact := range parsed.Facts {
		fact = strings.TrimSpace(fact)
		if fact == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{Kind: models.CandidateFact, Text: fact})
	}
	return candidates, nil
}

// renderConversation lays out the recent window followed by the current
// turn, one "role: text" line each.
func renderConversation(turn models.ConversationTurn, recent []models.ConversationTurn) string {
	var b strings.Builder
	for _, t := range recent {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
	return b.String()
}

// stripJSONFences removes a surrounding markdown code fence, which several
// models add even when asked for raw JSON.
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
