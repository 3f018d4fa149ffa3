package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CrisisStore persists tracked crises. All operations are short
// transactions scoped to the caller; nothing is held open across network
// calls.
type CrisisStore interface {
	Create(ctx context.Context, crisis Crisis) (Crisis, error)
	Get(ctx context.Context, id uuid.UUID) (*Crisis, error)
	List(ctx context.Context, limit int) ([]Crisis, error)
	FindByFuzzyName(ctx context.Context, name string) (*Crisis, error)
	UpdateVerdict(ctx context.Context, id uuid.UUID, status, summary string) error
	DeleteAllExcept(ctx context.Context, keep []uuid.UUID) (int64, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// SQLCrisisStore is the Postgres-backed CrisisStore.
type SQLCrisisStore struct {
	db *sql.DB
}

func NewCrisisStore(db *sql.DB) *SQLCrisisStore {
	return &SQLCrisisStore{db: db}
}

func (s *SQLCrisisStore) Create(ctx context.Context, crisis Crisis) (Crisis, error) {
	if s == nil || s.db == nil {
		return Crisis{}, errors.New("crisis store unavailable")
	}
	crisis.Severity = ClampSeverity(crisis.Severity)
	if crisis.VerdictStatus == "" {
		crisis.VerdictStatus = "PENDING"
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sentinel.crises (name, description, keywords, severity, location, verdict_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		crisis.Name,
		crisis.Description,
		crisis.Keywords,
		crisis.Severity,
		crisis.Location,
		crisis.VerdictStatus,
	).Scan(&crisis.ID, &crisis.CreatedAt, &crisis.UpdatedAt)
	if err != nil {
		return Crisis{}, fmt.Errorf("insert crisis: %w", err)
	}
	return crisis, nil
}

func (s *SQLCrisisStore) Get(ctx context.Context, id uuid.UUID) (*Crisis, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("crisis store unavailable")
	}
	row := s.db.QueryRowContext(ctx, crisisSelect+` WHERE id = $1`, id)
	crisis, err := scanCrisis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &crisis, nil
}

func (s *SQLCrisisStore) List(ctx context.Context, limit int) ([]Crisis, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("crisis store unavailable")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, crisisSelect+` ORDER BY severity DESC, created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list crises: %w", err)
	}
	defer rows.Close()

	var crises []Crisis
	for rows.Next() {
		c, err := scanCrisis(rows)
		if err != nil {
			return nil, err
		}
		crises = append(crises, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crises: %w", err)
	}
	return crises, nil
}

// FindByFuzzyName matches an existing crisis whose name contains, or is
// contained by, the candidate name. Used for discovery dedup.
func (s *SQLCrisisStore) FindByFuzzyName(ctx context.Context, name string) (*Crisis, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("crisis store unavailable")
	}
	row := s.db.QueryRowContext(ctx, crisisSelect+`
		WHERE LOWER(name) LIKE '%' || LOWER($1) || '%'
		   OR LOWER($1) LIKE '%' || LOWER(name) || '%'
		LIMIT 1`, name)
	crisis, err := scanCrisis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &crisis, nil
}

func (s *SQLCrisisStore) UpdateVerdict(ctx context.Context, id uuid.UUID, status, summary string) error {
	if s == nil || s.db == nil {
		return errors.New("crisis store unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sentinel.crises
		SET verdict_status = $2, verdict_summary = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, summary)
	if err != nil {
		return fmt.Errorf("update crisis verdict: %w", err)
	}
	return nil
}

// DeleteAllExcept removes every crisis not listed in keep, as one atomic
// statement. This is the selection stage's prune operation.
func (s *SQLCrisisStore) DeleteAllExcept(ctx context.Context, keep []uuid.UUID) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("crisis store unavailable")
	}
	ids := make([]string, 0, len(keep))
	for _, id := range keep {
		ids = append(ids, id.String())
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sentinel.crises WHERE id <> ALL($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return 0, fmt.Errorf("prune crises: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLCrisisStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("crisis store unavailable")
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sentinel.crises WHERE created_at < $1`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old crises: %w", err)
	}
	return res.RowsAffected()
}

const crisisSelect = `
	SELECT id, name, COALESCE(description, ''), keywords, severity,
		COALESCE(location, ''), COALESCE(verdict_status, 'PENDING'),
		COALESCE(verdict_summary, ''), created_at, updated_at
	FROM sentinel.crises`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrisis(r rowScanner) (Crisis, error) {
	var c Crisis
	if err := r.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Keywords,
		&c.Severity,
		&c.Location,
		&c.VerdictStatus,
		&c.VerdictSummary,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Crisis{}, err
		}
		return Crisis{}, fmt.Errorf("scan crisis: %w", err)
	}
	return c, nil
}
