// Package consumer ingests conversation turns from Kafka into the memory
// engine. It is an optional front end next to the HTTP API.
package consumer

import (
	"Mnemo_1.0/internal/models"
	"Mnemo_1.0/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// Ingestor is the engine surface the consumer needs.
type Ingestor interface {
	AddMemory(ctx context.Context, turn models.ConversationTurn) (*models.ReconciliationResult, error)
}

// TurnConsumer reads turn events from a Kafka topic and feeds them to the
// engine. Offsets are committed only after a turn was handled, so a crash
// re-delivers instead of losing turns.
type TurnConsumer struct {
	reader *kafka.Reader
	engine Ingestor
	logger *logger.Logger
}

// NewTurnConsumer creates a TurnConsumer over an existing reader.
func NewTurnConsumer(reader *kafka.Reader, engine Ingestor, log *logger.Logger) *TurnConsumer {
	return &TurnConsumer{reader: reader, engine: engine, logger: log}
}

// Run consumes until the context is cancelled.
func (c *TurnConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var turn models.ConversationTurn
		if err := json.Unmarshal(msg.Value, &turn); err != nil {
			// Poison message: log it and move on.
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("dropping malformed turn event")
			c.commit(ctx, msg)
			continue
		}

		if _, err := c.engine.AddMemory(ctx, turn); err != nil {
			if isTransient(err) {
				// Leave the offset uncommitted and pause; the turn will be
				// fetched again once the dependency recovers.
				c.logger.WithOwner(turn.User).WithError(models.ErrorInfo{Message: err.Error()}).
					Warn("transient ingest failure, will retry")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
				continue
			}
			c.logger.WithOwner(turn.User).WithError(models.ErrorInfo{Message: err.Error()}).
				Error("dropping turn after permanent ingest failure")
		}

		c.commit(ctx, msg)
	}
}

func (c *TurnConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("failed to commit offset")
	}
}

func isTransient(err error) bool {
	return errors.Is(err, models.ErrExtractionUnavailable) ||
		errors.Is(err, models.ErrStoreUnavailable) ||
		errors.Is(err, models.ErrJudgmentUnavailable)
}
