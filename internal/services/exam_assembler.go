package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

// ShuffleFunc permutes n elements through swap, with the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

type AssemblerOption func(*examAssembler)

// WithShuffle replaces the random source, mainly for tests.
func WithShuffle(shuffle ShuffleFunc) AssemblerOption {
	return func(a *examAssembler) { a.shuffle = shuffle }
}

// WithExposeAnswers controls whether the correct answer is sent to the client.
func WithExposeAnswers(expose bool) AssemblerOption {
	return func(a *examAssembler) { a.exposeAnswers = expose }
}

type examAssembler struct {
	questions     repositories.QuestionRepository
	shuffle       ShuffleFunc
	exposeAnswers bool
	logger        *slog.Logger
}

func NewExamAssembler(questions repositories.QuestionRepository, logger *slog.Logger, opts ...AssemblerOption) ExamAssembler {
	a := &examAssembler{
		questions:     questions,
		shuffle:       rand.Shuffle,
		exposeAnswers: true,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds an exam of 3*min(easy, moderate, hard) questions. Each
// consecutive triplet holds one question per tier in random order; surplus
// questions of the larger tiers are dropped.
func (a *examAssembler) Assemble(ctx context.Context, bank string) ([]ExamQuestion, error) {
	all, err := a.questions.ListByBank(ctx, bank)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank %q: %w", bank, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrBankNotFound, bank)
	}

	buckets := make(map[models.DifficultyTier][]*models.Question, len(models.DifficultyTiers))
	for _, q := range all {
		if !q.Difficulty.IsValid() {
			a.logger.Warn("Skipping question with unknown difficulty",
				"question_id", q.QuestionID, "difficulty", q.Difficulty)
			continue
		}
		buckets[q.Difficulty] = append(buckets[q.Difficulty], q)
	}

	n := -1
	for _, tier := range models.DifficultyTiers {
		bucket := buckets[tier]
		a.shuffle(len(bucket), func(i, j int) { bucket[i], bucket[j] = bucket[j], bucket[i] })
		if n < 0 || len(bucket) < n {
			n = len(bucket)
		}
	}

	exam := make([]ExamQuestion, 0, 3*n)
	for i := 0; i < n; i++ {
		triplet := []*models.Question{
			buckets[models.DifficultyEasy][i],
			buckets[models.DifficultyModerate][i],
			buckets[models.DifficultyHard][i],
		}
		a.shuffle(len(triplet), func(x, y int) { triplet[x], triplet[y] = triplet[y], triplet[x] })
		for _, q := range triplet {
			exam = append(exam, a.toExamQuestion(q))
		}
	}

	a.logger.Debug("Exam assembled", "bank", bank, "pool", len(all), "length", len(exam))
	return exam, nil
}

func (a *examAssembler) toExamQuestion(q *models.Question) ExamQuestion {
	eq := ExamQuestion{
		ID:       q.QuestionID,
		Question: q.Question,
		Options:  splitOptions(q.Options),
		Time:     timeAllowance(q.Difficulty),
		Type:     q.Difficulty,
		Links:    append([]string{}, q.Links...),
	}
	if a.exposeAnswers {
		eq.Answer = q.Answer
	}
	return eq
}

func timeAllowance(tier models.DifficultyTier) int {
	if tier == models.DifficultyHard {
		return 2
	}
	return 1
}

func splitOptions(options string) []string {
	parts := strings.Split(options, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
