package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestCrisisCreateClampsSeverity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO sentinel.crises`).
		WithArgs("Flood rumor", "desc", "flood dam", 100, "Pune, India", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

	s := NewCrisisStore(db)
	created, err := s.Create(context.Background(), Crisis{
		Name:        "Flood rumor",
		Description: "desc",
		Keywords:    "flood dam",
		Severity:    130,
		Location:    "Pune, India",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != id {
		t.Fatalf("expected returned id %s, got %s", id, created.ID)
	}
	if created.Severity != 100 {
		t.Fatalf("expected severity clamped to 100, got %d", created.Severity)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCrisisFindByFuzzyNameMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM sentinel.crises`).
		WithArgs("Unknown Event").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "keywords", "severity", "location", "verdict_status", "verdict_summary", "created_at", "updated_at"}))

	s := NewCrisisStore(db)
	found, err := s.FindByFuzzyName(context.Background(), "Unknown Event")
	if err != nil {
		t.Fatalf("FindByFuzzyName: %v", err)
	}
	if found != nil {
		t.Fatalf("expected nil for missing crisis, got %+v", found)
	}
}

func TestCrisisDeleteAllExcept(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	keep := []uuid.UUID{uuid.New(), uuid.New()}
	mock.ExpectExec(`DELETE FROM sentinel.crises WHERE id <> ALL`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	s := NewCrisisStore(db)
	deleted, err := s.DeleteAllExcept(context.Background(), keep)
	if err != nil {
		t.Fatalf("DeleteAllExcept: %v", err)
	}
	if deleted != 4 {
		t.Fatalf("expected 4 deleted, got %d", deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCrisisDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sentinel.crises WHERE created_at <`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	s := NewCrisisStore(db)
	deleted, err := s.DeleteOlderThan(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
}
