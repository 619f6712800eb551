package window

import (
	"Mnemo_1.0/internal/models"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestWindow(t *testing.T, size int) *TurnWindow {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTurnWindow(client, size)
}

func TestWindowKeepsChronologicalOrder(t *testing.T) {
	ctx := context.Background()
	w := newTestWindow(t, 5)

	turns := []models.ConversationTurn{
		{Role: models.SpeakerUser, Text: "I moved to Berlin"},
		{Role: models.SpeakerAssistant, Text: "Noted"},
		{Role: models.SpeakerUser, Text: "I work at Acme now"},
	}
	for _, turn := range turns {
		if err := w.Append(ctx, "u1", turn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := w.Recent(ctx, "u1")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(got))
	}
	for i := range turns {
		if got[i].Text != turns[i].Text {
			t.Errorf("turn %d: expected %q, got %q", i, turns[i].Text, got[i].Text)
		}
	}
}

func TestWindowTrimsToSize(t *testing.T) {
	ctx := context.Background()
	w := newTestWindow(t, 2)

	for _, text := range []string{"one", "two", "three"} {
		if err := w.Append(ctx, "u1", models.ConversationTurn{Role: models.SpeakerUser, Text: text}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := w.Recent(ctx, "u1")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected window of 2, got %d", len(got))
	}
	if got[0].Text != "two" || got[1].Text != "three" {
		t.Errorf("expected oldest entries evicted, got [%s %s]", got[0].Text, got[1].Text)
	}
}

func TestWindowIsPerOwner(t *testing.T) {
	ctx := context.Background()
	w := newTestWindow(t, 5)

	if err := w.Append(ctx, "alice", models.ConversationTurn{Role: models.SpeakerUser, Text: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := w.Recent(ctx, "bob")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty window for bob, got %d turns", len(got))
	}
}

func TestWindowClear(t *testing.T) {
	ctx := context.Background()
	w := newTestWindow(t, 5)

	if err := w.Append(ctx, "u1", models.ConversationTurn{Role: models.SpeakerUser, Text: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, err := w.Recent(ctx, "u1")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected cleared window, got %d turns", len(got))
	}
}
