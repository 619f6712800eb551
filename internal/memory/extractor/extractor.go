package extractor

import (
	"Mnemo_1.0/internal/models"
	"context"
)

// FactExtractor distills atomic fact candidates from a conversation turn.
// The recent turns give the model enough context to resolve references like
// "it" or "there"; only the current turn is the source of new facts.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, turn models.ConversationTurn, recent []models.ConversationTurn) ([]models.Candidate, error)
}

// TripleExtractor distills entity relationships from a conversation turn and
// recognizes the entities mentioned in a retrieval query.
type TripleExtractor interface {
	ExtractTriples(ctx context.Context, turn models.ConversationTurn, recent []models.ConversationTurn) ([]models.Candidate, error)
	Entities(ctx context.Context, userID, query string) ([]string, error)
}
