package repositories

import (
	"context"

	"github.com/highspring-tester/hat/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CandidateFilters struct {
	Program  string `json:"program"`
	Project  string `json:"project"`
	Status   string `json:"status"`
	Finished *bool  `json:"finished"` // true: result set, false: still open
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

// ===== CANDIDATE =====

type CandidateRepository interface {
	Create(ctx context.Context, candidate *models.Candidate) error
	GetByID(ctx context.Context, id uint) (*models.Candidate, error)
	GetByUsername(ctx context.Context, username string) (*models.Candidate, error)
	List(ctx context.Context, filters CandidateFilters) ([]*models.Candidate, int64, error)

	// CloseAttempt writes the verdict only while the candidate's result is still
	// empty. It returns ErrAttemptClosed when another writer got there first.
	CloseAttempt(ctx context.Context, id uint, verdict models.Verdict) error
}

// ===== SEQUENCES =====

type SequenceRepository interface {
	// Next atomically increments and returns the bank counter. The first call for a
	// bank seeds the counter with SequenceSeed of the bank's question ids.
	Next(ctx context.Context, bank string) (int64, error)
	// Current returns the last value handed out, or the seed when the counter was
	// never used.
	Current(ctx context.Context, bank string) (int64, error)
}

// ===== NOTIFICATIONS =====

type NotificationRepository interface {
	RecordFailure(ctx context.Context, failure *models.NotificationFailure) error
	ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.NotificationFailure, error)
	MarkDelivered(ctx context.Context, id uint) error
	MarkAttempt(ctx context.Context, id uint, lastErr string) error
}
