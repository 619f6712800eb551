package store

import (
	mongodb "Mnemo_1.0/internal/database/mongo"
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// historyCollection is the MongoDB collection holding the decision trail.
const historyCollection = "memory_events"

// MongoHistoryStore is a HistoryStore backed by MongoDB.
type MongoHistoryStore struct {
	coll *mongo.Collection
}

// NewMongoHistoryStore creates a MongoHistoryStore over an initialized client.
func NewMongoHistoryStore(client *mongodb.MongoClient) *MongoHistoryStore {
	return &MongoHistoryStore{coll: client.Collection(historyCollection)}
}

// Record appends one event to the decision trail.
func (s *MongoHistoryStore) Record(ctx context.Context, event *models.MemoryEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("record memory event: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's most recent events, newest first.
func (s *MongoHistoryStore) ListByOwner(ctx context.Context, userID string, limit int64) ([]*models.MemoryEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list memory events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.MemoryEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode memory events: %w", err)
	}
	return events, nil
}
