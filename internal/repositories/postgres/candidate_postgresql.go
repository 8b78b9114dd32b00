package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

type CandidatePostgreSQL struct {
	db *gorm.DB
}

func NewCandidatePostgreSQL(db *gorm.DB) repositories.CandidateRepository {
	return &CandidatePostgreSQL{db: db}
}

func (r *CandidatePostgreSQL) Create(ctx context.Context, candidate *models.Candidate) error {
	if err := r.db.WithContext(ctx).Create(candidate).Error; err != nil {
		return translateError(err, "create candidate")
	}
	return nil
}

func (r *CandidatePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).First(&candidate, id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("get candidate %d", id))
	}
	return &candidate, nil
}

func (r *CandidatePostgreSQL) GetByUsername(ctx context.Context, username string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&candidate).Error; err != nil {
		return nil, translateError(err, "get candidate by username")
	}
	return &candidate, nil
}

func (r *CandidatePostgreSQL) List(ctx context.Context, filters repositories.CandidateFilters) ([]*models.Candidate, int64, error) {
	query := ApplyCandidateFilters(r.db.WithContext(ctx).Model(&models.Candidate{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count candidates")
	}

	var candidates []*models.Candidate
	if err := ApplyPagination(query.Order("id ASC"), filters.Limit, filters.Offset).Find(&candidates).Error; err != nil {
		return nil, 0, translateError(err, "list candidates")
	}
	return candidates, total, nil
}

// CloseAttempt is a compare-and-swap on the empty result column. Only one of any
// number of concurrent callers can match the WHERE clause.
func (r *CandidatePostgreSQL) CloseAttempt(ctx context.Context, id uint, verdict models.Verdict) error {
	if verdict.Result == "" {
		return fmt.Errorf("close candidate %d: %w", id, repositories.ErrEmptyVerdict)
	}
	res := closeAttemptUpdate(r.db.WithContext(ctx), id, verdict)
	if res.Error != nil {
		return translateError(res.Error, "close candidate attempt")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Candidate{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err, "check candidate")
	}
	if count == 0 {
		return fmt.Errorf("close candidate %d: %w", id, repositories.ErrNotFound)
	}
	return fmt.Errorf("close candidate %d: %w", id, repositories.ErrAttemptClosed)
}

// closeAttemptUpdate matches the row only while its result is still empty.
func closeAttemptUpdate(tx *gorm.DB, id uint, verdict models.Verdict) *gorm.DB {
	return tx.Model(&models.Candidate{}).
		Where("id = ? AND result = ?", id, "").
		Updates(map[string]interface{}{
			"status":       verdict.Status,
			"result":       verdict.Result,
			"score":        verdict.Score,
			"video_link":   verdict.VideoLink,
			"completed_at": verdict.CompletedAt,
		})
}
