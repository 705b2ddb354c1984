package memory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"policy-rag/internal/config"
	"policy-rag/internal/db"
	"policy-rag/internal/models"
)

func testStore(t *testing.T, maxTurns int) *Store {
	t.Helper()
	bunDB, err := db.Connect(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bunDB.Close() })

	s, err := New(context.Background(), bunDB, maxTurns)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHistoryEmptySession(t *testing.T) {
	s := testStore(t, 6)

	turns, err := s.History(context.Background(), "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty history, got %d turns", len(turns))
	}
}

func TestAppendTurnAndHistory(t *testing.T) {
	s := testStore(t, 6)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "s1", "What is the travel limit?", "The limit is $500. See page 5."); err != nil {
		t.Fatal(err)
	}

	turns, err := s.History(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[0].Content != "What is the travel limit?" {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Role != models.RoleAssistant {
		t.Errorf("unexpected second turn: %+v", turns[1])
	}
}

func TestHistoryBounded(t *testing.T) {
	s := testStore(t, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.AppendTurn(ctx, "s1", "question", "answer."); err != nil {
			t.Fatal(err)
		}
	}

	turns, err := s.History(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 4 {
		t.Errorf("expected history bounded to 4 rows, got %d", len(turns))
	}
	// Oldest first.
	if turns[0].Role != models.RoleUser || turns[len(turns)-1].Role != models.RoleAssistant {
		t.Errorf("history not in chronological order: %+v", turns)
	}
}

func TestHistoryIsolatedPerSession(t *testing.T) {
	s := testStore(t, 6)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "s1", "q1", "a1."); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendTurn(ctx, "s2", "q2", "a2."); err != nil {
		t.Fatal(err)
	}

	turns, err := s.History(ctx, "s2")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 || turns[0].Content != "q2" {
		t.Errorf("session isolation broken: %+v", turns)
	}
}

func TestSummarySeededFromFirstAnswer(t *testing.T) {
	s := testStore(t, 6)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "s1", "What is the travel limit?", "The travel limit is $500. It applies per trip."); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Summary(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if summary != "The travel limit is $500" {
		t.Errorf("expected first-sentence seed, got %q", summary)
	}
}

func TestSummaryTracksLastTopic(t *testing.T) {
	s := testStore(t, 6)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "s1", "first question", "First answer. More detail."); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendTurn(ctx, "s1", "what about meals?", "Meals are capped at $50."); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Summary(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(summary, "First answer") {
		t.Errorf("summary lost its seed: %q", summary)
	}
	if !strings.Contains(summary, "| last_topic: what about meals?") {
		t.Errorf("summary missing last topic: %q", summary)
	}
}

func TestNextSummaryTruncation(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := nextSummary(long, strings.Repeat("q", 200), "answer")
	if len([]rune(got)) > summaryMaxLen+len(" | last_topic: ")+lastTopicMaxLen {
		t.Errorf("summary not truncated, length %d", len([]rune(got)))
	}
	if !strings.Contains(got, "| last_topic: ") {
		t.Errorf("missing last_topic marker: %q", got)
	}
}

func TestSummaryUnknownSession(t *testing.T) {
	s := testStore(t, 6)

	summary, err := s.Summary(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if summary != "" {
		t.Errorf("expected empty summary, got %q", summary)
	}
}
