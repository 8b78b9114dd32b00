package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/validator"
)

type questionBankService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionBankService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionBankService {
	return &questionBankService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// BankName derives the bank a candidate is examined on.
func BankName(program, project string) string {
	return strings.TrimSpace(program + " " + project)
}

// QuestionPrefix is the uppercased initial of the first and last word of bank.
func QuestionPrefix(bank string) (string, error) {
	words := strings.Fields(bank)
	if len(words) == 0 {
		return "", fmt.Errorf("bank name is empty")
	}
	first := []rune(words[0])[0]
	last := []rune(words[len(words)-1])[0]
	if !unicode.IsLetter(first) || !unicode.IsLetter(last) {
		return "", fmt.Errorf("bank name %q must start and end with a word beginning with a letter", bank)
	}
	return strings.ToUpper(string([]rune{first, last})), nil
}

func FormatQuestionID(prefix string, n int64) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// ===== READS =====

func (s *questionBankService) ListByBank(ctx context.Context, bank string) (*QuestionListResponse, error) {
	bank, err := s.normalizeBank(bank)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().ListByBank(ctx, bank)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if questions == nil {
		questions = []*models.Question{}
	}

	return &QuestionListResponse{
		Bank:      bank,
		Questions: questions,
		Total:     len(questions),
	}, nil
}

func (s *questionBankService) Stats(ctx context.Context, bank string) (*models.BankStats, error) {
	bank, err := s.normalizeBank(bank)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.Question().CountByDifficulty(ctx, bank)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	stats := &models.BankStats{
		Bank:     bank,
		Easy:     counts[models.DifficultyEasy],
		Moderate: counts[models.DifficultyModerate],
		Hard:     counts[models.DifficultyHard],
	}
	stats.Total = stats.Easy + stats.Moderate + stats.Hard
	stats.ExamLength = 3 * min(stats.Easy, stats.Moderate, stats.Hard)
	return stats, nil
}

// ===== IDENTIFIERS =====

// NextID consumes the next number of the bank sequence.
func (s *questionBankService) NextID(ctx context.Context, bank string) (string, error) {
	bank, err := s.normalizeBank(bank)
	if err != nil {
		return "", err
	}
	prefix, err := QuestionPrefix(bank)
	if err != nil {
		return "", fieldError("bank", err.Error())
	}

	n, err := s.repo.Sequence().Next(ctx, bank)
	if err != nil {
		return "", fmt.Errorf("failed to allocate question id: %w", err)
	}
	return FormatQuestionID(prefix, n), nil
}

// PeekNextID reports the id the next add would receive without consuming it.
func (s *questionBankService) PeekNextID(ctx context.Context, bank string) (string, error) {
	bank, err := s.normalizeBank(bank)
	if err != nil {
		return "", err
	}
	prefix, err := QuestionPrefix(bank)
	if err != nil {
		return "", fieldError("bank", err.Error())
	}

	n, err := s.repo.Sequence().Current(ctx, bank)
	if err != nil {
		return "", fmt.Errorf("failed to read question sequence: %w", err)
	}
	return FormatQuestionID(prefix, n+1), nil
}

// ===== WRITES =====

func (s *questionBankService) Add(ctx context.Context, bank string, req *QuestionRequest, editor string) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}
	bank, err := s.normalizeBank(bank)
	if err != nil {
		return nil, err
	}

	questionID, err := s.NextID(ctx, bank)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	question := &models.Question{
		QuestionID: questionID,
		Bank:       bank,
		CreatedBy:  editor,
		UpdatedBy:  editor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyQuestionRequest(question, req)

	if err := s.repo.Question().Create(ctx, question); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: question %s", ErrConflict, questionID)
		}
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question added", "bank", bank, "question_id", questionID, "editor", editor)
	return question, nil
}

// Update replaces the content of a question. Its id and bank never change.
func (s *questionBankService) Update(ctx context.Context, questionID string, req *QuestionRequest, editor string) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	question, err := s.repo.Question().GetByQuestionID(ctx, normalizeQuestionID(questionID))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}

	applyQuestionRequest(question, req)
	question.UpdatedBy = editor
	question.UpdatedAt = time.Now()

	if err := s.repo.Question().Update(ctx, question); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated", "question_id", question.QuestionID, "editor", editor)
	return question, nil
}

func (s *questionBankService) Delete(ctx context.Context, questionID string) error {
	questionID = normalizeQuestionID(questionID)
	if err := s.repo.Question().Delete(ctx, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted", "question_id", questionID)
	return nil
}

// ===== HELPERS =====

func (s *questionBankService) normalizeBank(bank string) (string, error) {
	bank = strings.TrimSpace(bank)
	if err := s.validator.Var("bank", bank, "required,max=200,bank_name"); err != nil {
		return "", validationError(err)
	}
	return bank, nil
}

func normalizeQuestionID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func applyQuestionRequest(q *models.Question, req *QuestionRequest) {
	links := make([]string, 0, len(req.Links))
	for _, l := range req.Links {
		if l = strings.TrimSpace(l); l != "" {
			links = append(links, l)
		}
	}

	q.Question = strings.TrimSpace(req.Question)
	q.Difficulty = req.Difficulty
	q.Options = strings.TrimSpace(req.Options)
	q.Answer = strings.TrimSpace(req.Answer)
	q.Links = datatypes.JSONSlice[string](links)
}
