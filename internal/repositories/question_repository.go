package repositories

import (
	"context"

	"github.com/highspring-tester/hat/internal/models"
)

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByQuestionID(ctx context.Context, questionID string) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, questionID string) error

	// ListByBank returns every question of a bank ordered by question id.
	ListByBank(ctx context.Context, bank string) ([]*models.Question, error)
	CountByBank(ctx context.Context, bank string) (int64, error)
	CountByDifficulty(ctx context.Context, bank string) (map[models.DifficultyTier]int, error)
}
