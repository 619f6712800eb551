// Package window keeps a short per-owner history of recent conversation
// turns in Redis. The extractor reads it to resolve pronouns and other
// references that a single turn cannot.
package window

import (
	"Mnemo_1.0/internal/models"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const turnKeyPrefix = "memory:turns:"

// TurnWindow is a fixed-size, most-recent-first list of turns per owner.
type TurnWindow struct {
	client *redis.Client
	size   int
}

// NewTurnWindow creates a window keeping up to size turns per owner.
func NewTurnWindow(client *redis.Client, size int) *TurnWindow {
	if size <= 0 {
		size = 1
	}
	return &TurnWindow{client: client, size: size}
}

// Append records a turn and trims the window to its configured size.
func (w *TurnWindow) Append(ctx context.Context, userID string, turn models.ConversationTurn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := turnKey(userID)

	pipe := w.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(w.size)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn to window: %w", err)
	}
	return nil
}

// Recent returns the owner's window in chronological order, oldest first.
func (w *TurnWindow) Recent(ctx context.Context, userID string) ([]models.ConversationTurn, error) {
	raw, err := w.client.LRange(ctx, turnKey(userID), 0, int64(w.size)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read turn window: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(raw))
	// LPUSH stores newest first, walk backwards to restore order.
	for i := len(raw) - 1; i >= 0; i-- {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(raw[i]), &turn); err != nil {
			// A malformed entry is dropped, not fatal.
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear drops the owner's window.
func (w *TurnWindow) Clear(ctx context.Context, userID string) error {
	if err := w.client.Del(ctx, turnKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear turn window: %w", err)
	}
	return nil
}

func turnKey(userID string) string {
	return turnKeyPrefix + userID
}
