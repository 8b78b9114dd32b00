package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

// ===== BASIC CRUD OPERATIONS =====

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return translateError(err, "create question")
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByQuestionID(ctx context.Context, questionID string) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).Where("question_id = ?", questionID).First(&question).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("get question %s", questionID))
	}
	return &question, nil
}

// Update rewrites the editable content of a question identified by its question id.
func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	res := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("question_id = ?", question.QuestionID).
		Updates(map[string]interface{}{
			"question":   question.Question,
			"difficulty": question.Difficulty,
			"options":    question.Options,
			"answer":     question.Answer,
			"links":      question.Links,
			"updated_by": question.UpdatedBy,
			"updated_at": question.UpdatedAt,
		})
	if res.Error != nil {
		return translateError(res.Error, "update question")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update question %s: %w", question.QuestionID, repositories.ErrNotFound)
	}
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, questionID string) error {
	res := q.db.WithContext(ctx).Where("question_id = ?", questionID).Delete(&models.Question{})
	if res.Error != nil {
		return translateError(res.Error, "delete question")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete question %s: %w", questionID, repositories.ErrNotFound)
	}
	return nil
}

// ===== BANK QUERIES =====

func (q *QuestionPostgreSQL) ListByBank(ctx context.Context, bank string) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("bank = ?", bank).
		Order("question_id ASC").
		Find(&questions).Error; err != nil {
		return nil, translateError(err, "list bank questions")
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) CountByBank(ctx context.Context, bank string) (int64, error) {
	var count int64
	if err := q.db.WithContext(ctx).Model(&models.Question{}).Where("bank = ?", bank).Count(&count).Error; err != nil {
		return 0, translateError(err, "count bank questions")
	}
	return count, nil
}

func (q *QuestionPostgreSQL) CountByDifficulty(ctx context.Context, bank string) (map[models.DifficultyTier]int, error) {
	var rows []struct {
		Difficulty models.DifficultyTier
		Count      int
	}
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("difficulty, COUNT(*) AS count").
		Where("bank = ?", bank).
		Group("difficulty").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "count questions by difficulty")
	}

	counts := make(map[models.DifficultyTier]int, len(models.DifficultyTiers))
	for _, tier := range models.DifficultyTiers {
		counts[tier] = 0
	}
	for _, row := range rows {
		counts[row.Difficulty] = row.Count
	}
	return counts, nil
}
