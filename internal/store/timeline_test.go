package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func timelineColumns() []string {
	return []string{"id", "crisis_id", "claim_text", "summary", "status", "location", "sources", "confidence_score", "reasoning_trace", "created_at"}
}

func TestTimelineGetByClaimTextScoped(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	crisisID := uuid.New()
	itemID := uuid.New()
	mock.ExpectQuery(`FROM sentinel.timeline_items`).
		WithArgs(crisisID, "Dam burst in city").
		WillReturnRows(sqlmock.NewRows(timelineColumns()).AddRow(
			itemID, crisisID, "Dam burst in city", "summary", "DEBUNKED", "City",
			[]byte(`[{"title":"FactCheck","url":"https://example.com"}]`), 85, "trace", time.Now(),
		))

	s := NewTimelineStore(db)
	item, err := s.GetByClaimText(context.Background(), &crisisID, "Dam burst in city")
	if err != nil {
		t.Fatalf("GetByClaimText: %v", err)
	}
	if item == nil {
		t.Fatal("expected existing item")
	}
	if item.Status != StatusDebunked {
		t.Fatalf("expected DEBUNKED, got %s", item.Status)
	}
	if len(item.Sources) != 1 || item.Sources[0].Title != "FactCheck" {
		t.Fatalf("unexpected sources: %+v", item.Sources)
	}
}

func TestTimelineGetByClaimTextAdHocScope(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`crisis_id IS NULL`).
		WithArgs("Some viral rumor").
		WillReturnRows(sqlmock.NewRows(timelineColumns()))

	s := NewTimelineStore(db)
	item, err := s.GetByClaimText(context.Background(), nil, "Some viral rumor")
	if err != nil {
		t.Fatalf("GetByClaimText: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil for unseen claim, got %+v", item)
	}
}

func TestTimelineCreateDefaultsInvalidStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`INSERT INTO sentinel.timeline_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, time.Now()))

	s := NewTimelineStore(db)
	item, err := s.Create(context.Background(), TimelineItem{
		ClaimText: "claim",
		Status:    VerificationStatus("NONSENSE"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Status != StatusUnconfirmed {
		t.Fatalf("expected invalid status coerced to UNCONFIRMED, got %s", item.Status)
	}
}
