package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// TimelineStore persists claim records. Claim text is the natural key
// within a crisis scope; callers check GetByClaimText before creating.
type TimelineStore interface {
	Create(ctx context.Context, item TimelineItem) (TimelineItem, error)
	GetByClaimText(ctx context.Context, crisisID *uuid.UUID, claimText string) (*TimelineItem, error)
	ListForCrisis(ctx context.Context, crisisID uuid.UUID) ([]TimelineItem, error)
}

// SQLTimelineStore is the Postgres-backed TimelineStore.
type SQLTimelineStore struct {
	db *sql.DB
}

func NewTimelineStore(db *sql.DB) *SQLTimelineStore {
	return &SQLTimelineStore{db: db}
}

func (s *SQLTimelineStore) Create(ctx context.Context, item TimelineItem) (TimelineItem, error) {
	if s == nil || s.db == nil {
		return TimelineItem{}, errors.New("timeline store unavailable")
	}
	if !ValidVerificationStatus(item.Status) {
		item.Status = StatusUnconfirmed
	}
	sourcesJSON, err := json.Marshal(item.Sources)
	if err != nil {
		return TimelineItem{}, fmt.Errorf("encode sources: %w", err)
	}

	var crisisID any
	if item.CrisisID != nil {
		crisisID = *item.CrisisID
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO sentinel.timeline_items
			(crisis_id, claim_text, summary, status, location, sources, confidence_score, reasoning_trace, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`,
		crisisID,
		item.ClaimText,
		item.Summary,
		string(item.Status),
		item.Location,
		sourcesJSON,
		item.Confidence,
		item.Reasoning,
	).Scan(&item.ID, &item.Timestamp)
	if err != nil {
		return TimelineItem{}, fmt.Errorf("insert timeline item: %w", err)
	}
	return item, nil
}

// GetByClaimText returns the existing record for this exact claim text in
// the given crisis scope, or nil. A nil crisisID matches ad-hoc records.
func (s *SQLTimelineStore) GetByClaimText(ctx context.Context, crisisID *uuid.UUID, claimText string) (*TimelineItem, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("timeline store unavailable")
	}
	var row *sql.Row
	if crisisID != nil {
		row = s.db.QueryRowContext(ctx, timelineSelect+` WHERE crisis_id = $1 AND claim_text = $2 LIMIT 1`, *crisisID, claimText)
	} else {
		row = s.db.QueryRowContext(ctx, timelineSelect+` WHERE crisis_id IS NULL AND claim_text = $1 LIMIT 1`, claimText)
	}
	item, err := scanTimelineItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *SQLTimelineStore) ListForCrisis(ctx context.Context, crisisID uuid.UUID) ([]TimelineItem, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("timeline store unavailable")
	}
	rows, err := s.db.QueryContext(ctx, timelineSelect+` WHERE crisis_id = $1 ORDER BY created_at DESC`, crisisID)
	if err != nil {
		return nil, fmt.Errorf("list timeline items: %w", err)
	}
	defer rows.Close()

	var items []TimelineItem
	for rows.Next() {
		item, err := scanTimelineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline items: %w", err)
	}
	return items, nil
}

const timelineSelect = `
	SELECT id, crisis_id, claim_text, COALESCE(summary, ''), status,
		COALESCE(location, ''), sources, confidence_score,
		COALESCE(reasoning_trace, ''), created_at
	FROM sentinel.timeline_items`

func scanTimelineItem(r rowScanner) (TimelineItem, error) {
	var item TimelineItem
	var crisisID uuid.NullUUID
	var status string
	var sourcesJSON []byte
	if err := r.Scan(
		&item.ID,
		&crisisID,
		&item.ClaimText,
		&item.Summary,
		&status,
		&item.Location,
		&sourcesJSON,
		&item.Confidence,
		&item.Reasoning,
		&item.Timestamp,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TimelineItem{}, err
		}
		return TimelineItem{}, fmt.Errorf("scan timeline item: %w", err)
	}
	if crisisID.Valid {
		id := crisisID.UUID
		item.CrisisID = &id
	}
	item.Status = VerificationStatus(status)
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &item.Sources); err != nil {
			return TimelineItem{}, fmt.Errorf("decode sources: %w", err)
		}
	}
	return item, nil
}
