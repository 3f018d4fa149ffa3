package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotificationStore persists frontend-visible alerts.
type NotificationStore interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	GetLatest(ctx context.Context) (*Notification, error)
}

// SQLNotificationStore is the Postgres-backed NotificationStore.
type SQLNotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *SQLNotificationStore {
	return &SQLNotificationStore{db: db}
}

func (s *SQLNotificationStore) Create(ctx context.Context, n Notification) (Notification, error) {
	if s == nil || s.db == nil {
		return Notification{}, errors.New("notification store unavailable")
	}
	var crisisID any
	if n.CrisisID != nil {
		crisisID = *n.CrisisID
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sentinel.notifications (content, notification_type, crisis_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, n.Content, n.Type, crisisID).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (s *SQLNotificationStore) GetLatest(ctx context.Context) (*Notification, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("notification store unavailable")
	}
	var n Notification
	var crisisID uuid.NullUUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, notification_type, crisis_id, created_at
		FROM sentinel.notifications
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&n.ID, &n.Content, &n.Type, &crisisID, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest notification: %w", err)
	}
	if crisisID.Valid {
		id := crisisID.UUID
		n.CrisisID = &id
	}
	return &n, nil
}
