package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// AnalysisStore persists ad-hoc user verification requests.
type AnalysisStore interface {
	Create(ctx context.Context, queryText string) (Analysis, error)
	Get(ctx context.Context, id uuid.UUID) (*Analysis, error)
	SetStatus(ctx context.Context, id uuid.UUID, status AnalysisStatus) error
	SetVerdict(ctx context.Context, id uuid.UUID, verdictStatus, summary string, sources []Source, confidence int, reasoning string) error
}

// SQLAnalysisStore is the Postgres-backed AnalysisStore.
type SQLAnalysisStore struct {
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *SQLAnalysisStore {
	return &SQLAnalysisStore{db: db}
}

func (s *SQLAnalysisStore) Create(ctx context.Context, queryText string) (Analysis, error) {
	if s == nil || s.db == nil {
		return Analysis{}, errors.New("analysis store unavailable")
	}
	a := Analysis{QueryText: queryText, Status: AnalysisPending}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sentinel.adhoc_analyses (query_text, status, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`, queryText, string(AnalysisPending)).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Analysis{}, fmt.Errorf("insert analysis: %w", err)
	}
	return a, nil
}

func (s *SQLAnalysisStore) Get(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("analysis store unavailable")
	}
	var a Analysis
	var status string
	var sourcesJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, query_text, status, COALESCE(verdict_status, ''),
			COALESCE(verdict_summary, ''), sources, confidence_score,
			COALESCE(reasoning_trace, ''), created_at
		FROM sentinel.adhoc_analyses
		WHERE id = $1
	`, id).Scan(&a.ID, &a.QueryText, &status, &a.VerdictStatus, &a.VerdictSummary,
		&sourcesJSON, &a.Confidence, &a.Reasoning, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	a.Status = AnalysisStatus(status)
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &a.Sources); err != nil {
			return nil, fmt.Errorf("decode analysis sources: %w", err)
		}
	}
	return &a, nil
}

func (s *SQLAnalysisStore) SetStatus(ctx context.Context, id uuid.UUID, status AnalysisStatus) error {
	if s == nil || s.db == nil {
		return errors.New("analysis store unavailable")
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sentinel.adhoc_analyses SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update analysis status: %w", err)
	}
	return nil
}

func (s *SQLAnalysisStore) SetVerdict(ctx context.Context, id uuid.UUID, verdictStatus, summary string, sources []Source, confidence int, reasoning string) error {
	if s == nil || s.db == nil {
		return errors.New("analysis store unavailable")
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("encode analysis sources: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sentinel.adhoc_analyses
		SET status = $2, verdict_status = $3, verdict_summary = $4,
			sources = $5, confidence_score = $6, reasoning_trace = $7
		WHERE id = $1
	`, id, string(AnalysisCompleted), verdictStatus, summary, sourcesJSON, confidence, reasoning)
	if err != nil {
		return fmt.Errorf("update analysis verdict: %w", err)
	}
	return nil
}

var _ AnalysisStore = (*SQLAnalysisStore)(nil)
