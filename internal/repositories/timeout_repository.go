package repositories

import (
	"context"
	"time"

	"github.com/highspring-tester/hat/internal/models"
)

// timeoutRepository bounds every store call with a deadline. A caller deadline
// that is already shorter wins.
type timeoutRepository struct {
	Repository
	timeout time.Duration
}

// NewTimeoutRepository wraps inner so that no repository call outlives timeout.
// A non-positive timeout returns inner unchanged.
func NewTimeoutRepository(inner Repository, timeout time.Duration) Repository {
	if timeout <= 0 {
		return inner
	}
	return &timeoutRepository{Repository: inner, timeout: timeout}
}

func (r *timeoutRepository) Candidate() CandidateRepository {
	return timeoutCandidates{inner: r.Repository.Candidate(), timeout: r.timeout}
}

func (r *timeoutRepository) Question() QuestionRepository {
	return timeoutQuestions{inner: r.Repository.Question(), timeout: r.timeout}
}

func (r *timeoutRepository) Sequence() SequenceRepository {
	return timeoutSequences{inner: r.Repository.Sequence(), timeout: r.timeout}
}

func (r *timeoutRepository) User() UserRepository {
	return timeoutUsers{inner: r.Repository.User(), timeout: r.timeout}
}

func (r *timeoutRepository) Notification() NotificationRepository {
	return timeoutNotifications{inner: r.Repository.Notification(), timeout: r.timeout}
}

type timeoutCandidates struct {
	inner   CandidateRepository
	timeout time.Duration
}

func (r timeoutCandidates) Create(ctx context.Context, candidate *models.Candidate) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Create(ctx, candidate)
}

func (r timeoutCandidates) GetByID(ctx context.Context, id uint) (*models.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.GetByID(ctx, id)
}

func (r timeoutCandidates) GetByUsername(ctx context.Context, username string) (*models.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.GetByUsername(ctx, username)
}

func (r timeoutCandidates) List(ctx context.Context, filters CandidateFilters) ([]*models.Candidate, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.List(ctx, filters)
}

func (r timeoutCandidates) CloseAttempt(ctx context.Context, id uint, verdict models.Verdict) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.CloseAttempt(ctx, id, verdict)
}

type timeoutQuestions struct {
	inner   QuestionRepository
	timeout time.Duration
}

func (r timeoutQuestions) Create(ctx context.Context, question *models.Question) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Create(ctx, question)
}

func (r timeoutQuestions) GetByQuestionID(ctx context.Context, questionID string) (*models.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.GetByQuestionID(ctx, questionID)
}

func (r timeoutQuestions) Update(ctx context.Context, question *models.Question) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Update(ctx, question)
}

func (r timeoutQuestions) Delete(ctx context.Context, questionID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Delete(ctx, questionID)
}

func (r timeoutQuestions) ListByBank(ctx context.Context, bank string) ([]*models.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.ListByBank(ctx, bank)
}

func (r timeoutQuestions) CountByBank(ctx context.Context, bank string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.CountByBank(ctx, bank)
}

func (r timeoutQuestions) CountByDifficulty(ctx context.Context, bank string) (map[models.DifficultyTier]int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.CountByDifficulty(ctx, bank)
}

type timeoutSequences struct {
	inner   SequenceRepository
	timeout time.Duration
}

func (r timeoutSequences) Next(ctx context.Context, bank string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Next(ctx, bank)
}

func (r timeoutSequences) Current(ctx context.Context, bank string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Current(ctx, bank)
}

type timeoutUsers struct {
	inner   UserRepository
	timeout time.Duration
}

func (r timeoutUsers) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.Create(ctx, user)
}

func (r timeoutUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.GetByUsername(ctx, username)
}

func (r timeoutUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.GetByEmail(ctx, email)
}

type timeoutNotifications struct {
	inner   NotificationRepository
	timeout time.Duration
}

func (r timeoutNotifications) RecordFailure(ctx context.Context, failure *models.NotificationFailure) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.RecordFailure(ctx, failure)
}

func (r timeoutNotifications) ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.NotificationFailure, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.ListPending(ctx, maxAttempts, limit)
}

func (r timeoutNotifications) MarkDelivered(ctx context.Context, id uint) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.MarkDelivered(ctx, id)
}

func (r timeoutNotifications) MarkAttempt(ctx context.Context, id uint, lastErr string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.MarkAttempt(ctx, id, lastErr)
}
