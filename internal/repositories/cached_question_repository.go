package repositories

import (
	"context"

	"github.com/highspring-tester/hat/internal/cache"
	"github.com/highspring-tester/hat/internal/models"
)

// cachedQuestionRepository serves bank reads from Redis and invalidates the bank
// entry on every write.
type cachedQuestionRepository struct {
	QuestionRepository
	cacheManager *cache.CacheManager
}

// NewCachedQuestionRepository wraps inner with bank-level caching. With a disabled
// cache manager inner is returned unchanged.
func NewCachedQuestionRepository(inner QuestionRepository, cm *cache.CacheManager) QuestionRepository {
	if cm == nil || !cm.Enabled() {
		return inner
	}
	return &cachedQuestionRepository{QuestionRepository: inner, cacheManager: cm}
}

func (r *cachedQuestionRepository) ListByBank(ctx context.Context, bank string) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.cacheManager.Bank.CacheOrExecute(ctx, bank, &questions, cache.BankCacheConfig.TTL, func() (interface{}, error) {
		return r.QuestionRepository.ListByBank(ctx, bank)
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *cachedQuestionRepository) CountByDifficulty(ctx context.Context, bank string) (map[models.DifficultyTier]int, error) {
	var counts map[models.DifficultyTier]int
	err := r.cacheManager.Stats.CacheOrExecute(ctx, bank, &counts, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return r.QuestionRepository.CountByDifficulty(ctx, bank)
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *cachedQuestionRepository) Create(ctx context.Context, question *models.Question) error {
	if err := r.QuestionRepository.Create(ctx, question); err != nil {
		return err
	}
	cache.InvalidateBankCache(ctx, r.cacheManager, question.Bank)
	return nil
}

func (r *cachedQuestionRepository) Update(ctx context.Context, question *models.Question) error {
	if err := r.QuestionRepository.Update(ctx, question); err != nil {
		return err
	}
	cache.InvalidateBankCache(ctx, r.cacheManager, question.Bank)
	return nil
}

func (r *cachedQuestionRepository) Delete(ctx context.Context, questionID string) error {
	existing, err := r.QuestionRepository.GetByQuestionID(ctx, questionID)
	if err != nil {
		return err
	}
	if err := r.QuestionRepository.Delete(ctx, questionID); err != nil {
		return err
	}
	cache.InvalidateBankCache(ctx, r.cacheManager, existing.Bank)
	return nil
}
