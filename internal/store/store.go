package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/kanpo-triage/internal/triage"
)

//go:embed schema.sql
var schemaSQL string

// Event is the anonymous outcome of one triage request. No utterance text
// or history is kept.
type Event struct {
	ID          uuid.UUID
	RequestID   string
	Confidence  triage.Confidence
	Remedy      string
	Scores      triage.CategoryScores
	GroupTotals triage.GroupTotals
	Matched     []string
	CreatedAt   time.Time
}

// NewEvent summarises an analysis for the audit log.
func NewEvent(requestID string, a triage.Analysis) Event {
	matched := make([]string, 0, len(a.Matched))
	for _, m := range a.Matched {
		matched = append(matched, m.Descriptor.ID)
	}
	return Event{
		ID:          uuid.New(),
		RequestID:   requestID,
		Confidence:  a.Confidence,
		Remedy:      a.Remedy,
		Scores:      a.Scores,
		GroupTotals: a.Totals,
		Matched:     matched,
		CreatedAt:   time.Now().UTC(),
	}
}

// Store is the optional Postgres audit log for triage outcomes.
type Store struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies schema.sql; every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) RecordTriage(ctx context.Context, e Event) error {
	scores, err := json.Marshal(e.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	totals, err := json.Marshal(e.GroupTotals)
	if err != nil {
		return fmt.Errorf("encode totals: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO triage_events (id, request_id, confidence, remedy, scores, group_totals, matched, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.RequestID, string(e.Confidence), e.Remedy, scores, totals, e.Matched, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert triage event: %w", err)
	}
	return nil
}
