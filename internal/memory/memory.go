// Package memory is the per-session conversation log: an append-only turn
// history plus a lightweight running summary, keyed by session id.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"policy-rag/internal/models"
)

const (
	summaryMaxLen   = 300
	lastTopicMaxLen = 100
)

type TurnRecord struct {
	bun.BaseModel `bun:"table:turns,alias:t"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SessionID     string    `bun:"session_id,notnull"`
	Role          string    `bun:"role,notnull"`
	Content       string    `bun:"content,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`
	SessionID     string `bun:"session_id,pk"`
	Summary       string `bun:"summary,notnull,default:''"`
}

type Store struct {
	db       *bun.DB
	maxTurns int
}

// New ensures the memory schema on the given database. maxTurns bounds
// history reads to the most recent maxTurns exchanges (2*maxTurns rows).
func New(ctx context.Context, db *bun.DB, maxTurns int) (*Store, error) {
	if _, err := db.NewCreateTable().Model((*TurnRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create turns table: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*SessionRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if maxTurns <= 0 {
		maxTurns = 6
	}
	return &Store{db: db, maxTurns: maxTurns}, nil
}

// History returns the most recent turns of a session, oldest first,
// bounded to 2*maxTurns rows. Unknown sessions yield an empty history.
func (s *Store) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	var records []TurnRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("session_id = ?", sessionID).
		OrderExpr("id DESC").
		Limit(2 * s.maxTurns).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	turns := make([]models.Turn, len(records))
	for i, rec := range records {
		turns[len(records)-1-i] = models.Turn{Role: rec.Role, Content: rec.Content}
	}
	return turns, nil
}

// Summary returns the running summary of a session, "" when unknown.
func (s *Store) Summary(ctx context.Context, sessionID string) (string, error) {
	var rec SessionRecord
	err := s.db.NewSelect().
		Model(&rec).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load summary: %w", err)
	}
	return rec.Summary, nil
}

// AppendTurn records one user/assistant exchange and updates the running
// summary: the first exchange seeds the summary from the assistant's first
// sentence, later exchanges truncate it and append a last-topic tag from
// the user's question.
func (s *Store) AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error {
	turns := []TurnRecord{
		{SessionID: sessionID, Role: models.RoleUser, Content: userText},
		{SessionID: sessionID, Role: models.RoleAssistant, Content: assistantText},
	}
	if _, err := s.db.NewInsert().Model(&turns).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turns: %w", err)
	}

	summary, err := s.Summary(ctx, sessionID)
	if err != nil {
		return err
	}
	summary = nextSummary(summary, userText, assistantText)

	rec := SessionRecord{SessionID: sessionID, Summary: summary}
	_, err = s.db.NewInsert().
		Model(&rec).
		On("CONFLICT (session_id) DO UPDATE").
		Set("summary = EXCLUDED.summary").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}

func nextSummary(summary, userText, assistantText string) string {
	if summary == "" && assistantText != "" {
		first, _, _ := strings.Cut(assistantText, ".")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(truncate(summary, summaryMaxLen) + " | last_topic: " + truncate(userText, lastTopicMaxLen))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
