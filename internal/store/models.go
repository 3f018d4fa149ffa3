package store

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the verdict assigned to a single claim.
type VerificationStatus string

const (
	StatusVerified    VerificationStatus = "VERIFIED"
	StatusDebunked    VerificationStatus = "DEBUNKED"
	StatusUnconfirmed VerificationStatus = "UNCONFIRMED"
)

// ValidVerificationStatus reports whether s is one of the known verdicts.
func ValidVerificationStatus(s VerificationStatus) bool {
	switch s {
	case StatusVerified, StatusDebunked, StatusUnconfirmed:
		return true
	}
	return false
}

// AnalysisStatus tracks the lifecycle of an ad-hoc user analysis.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "PENDING"
	AnalysisProcessing AnalysisStatus = "PROCESSING"
	AnalysisCompleted  AnalysisStatus = "COMPLETED"
	AnalysisFailed     AnalysisStatus = "FAILED"
)

// Crisis is a tracked candidate threat or rumor under active monitoring.
type Crisis struct {
	ID             uuid.UUID
	Name           string
	Description    string
	Keywords       string
	Severity       int
	Location       string
	VerdictStatus  string
	VerdictSummary string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Source is one cited reference attached to a timeline item.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TimelineItem is one scored claim record within a crisis's history.
// CrisisID is nil for records produced by ad-hoc user queries.
type TimelineItem struct {
	ID         uuid.UUID
	CrisisID   *uuid.UUID
	ClaimText  string
	Summary    string
	Status     VerificationStatus
	Location   string
	Sources    []Source
	Confidence int
	Reasoning  string
	Timestamp  time.Time
}

// Notification is a frontend-visible alert row.
type Notification struct {
	ID        uuid.UUID
	Content   string
	Type      string
	CrisisID  *uuid.UUID
	CreatedAt time.Time
}

// Analysis is one user-submitted claim verification request.
type Analysis struct {
	ID             uuid.UUID
	QueryText      string
	Status         AnalysisStatus
	VerdictStatus  string
	VerdictSummary string
	Sources        []Source
	Confidence     int
	Reasoning      string
	CreatedAt      time.Time
}

// ClampSeverity bounds a severity score to [0,100].
func ClampSeverity(severity int) int {
	if severity < 0 {
		return 0
	}
	if severity > 100 {
		return 100
	}
	return severity
}
