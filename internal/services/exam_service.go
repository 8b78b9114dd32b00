package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	issuer    *auth.Issuer
	assembler ExamAssembler
	notifier  ResultNotifier
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewExamService(repo repositories.Repository, issuer *auth.Issuer, assembler ExamAssembler, notifier ResultNotifier, logger *slog.Logger, validator *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		issuer:    issuer,
		assembler: assembler,
		notifier:  notifier,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// Authenticate checks a candidate's one-time credential and issues a test-taker token.
func (s *examService) Authenticate(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	candidate, err := s.repo.Candidate().GetByUsername(ctx, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}

	ok, err := auth.CheckPassword(candidate.Password, req.Password)
	if err != nil {
		s.logger.Error("Stored candidate password is unreadable", "candidate_id", candidate.ID, "error", err)
		return nil, ErrUnauthorized
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	if IsAttemptClosed(candidate) {
		s.logger.Info("Login refused, attempt closed", "candidate_id", candidate.ID, "status", candidate.Status)
		return nil, ErrAlreadyAttempted
	}

	bank := BankName(candidate.Program, candidate.Project)
	claims := auth.Claims{
		Scope:       models.ScopeTestTaker,
		Name:        candidate.Name,
		Email:       candidate.Email,
		CandidateID: candidate.ID,
		Bank:        bank,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: candidate.Username,
		},
	}
	token, err := s.issuer.IssueFor(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue exam token: %w", err)
	}

	s.logger.Info("Candidate authenticated", "candidate_id", candidate.ID, "bank", bank)

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.issuer.TTLFor(models.ScopeTestTaker).Seconds()),
		User:        candidateSessionUser(candidate),
	}, nil
}

// FetchExam assembles the exam of the token's bank while the attempt is still open.
// It does not change the candidate record and may be called again on reload.
func (s *examService) FetchExam(ctx context.Context, claims *auth.Claims) (*ExamSetupResponse, error) {
	candidate, err := s.openCandidate(ctx, claims)
	if err != nil {
		return nil, err
	}

	questions, err := s.assembler.Assemble(ctx, claims.Bank)
	if err != nil {
		return nil, err
	}

	return &ExamSetupResponse{
		UserDetails: candidateSessionUser(candidate),
		Questions:   questions,
	}, nil
}

func (s *examService) Submit(ctx context.Context, claims *auth.Claims, req *SubmitRequest) (*ExamResultResponse, error) {
	if err := auth.Authorize(claims, models.ScopeTestTaker).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	label := strings.TrimSpace(req.ScoreString)
	if label == "" {
		return nil, fieldError("scoreString", "score label must not be blank")
	}
	var attempted int
	if req.AttemptedQuestions != nil {
		attempted = *req.AttemptedQuestions
	} else {
		n, err := ParseAttempted(label)
		if err != nil {
			return nil, fieldError("attemptedQuestions", err.Error())
		}
		attempted = n
	}

	verdict := models.Verdict{
		Status:      ComputeVerdict(attempted, req.Percentage),
		Result:      label,
		Score:       FormatScore(req.Percentage),
		CompletedAt: s.now().UTC(),
	}
	if err := s.closeAttempt(ctx, claims.CandidateID, verdict); err != nil {
		return nil, err
	}

	return &ExamResultResponse{
		Success: true,
		Message: "Assessment submitted successfully",
	}, nil
}

func (s *examService) Fail(ctx context.Context, claims *auth.Claims, req *FailRequest) (*ExamResultResponse, error) {
	if err := auth.Authorize(claims, models.ScopeTestTaker).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	reason := strings.TrimSpace(req.FailureReason)
	if reason == "" {
		return nil, fieldError("failureReason", "failure reason must not be blank")
	}
	verdict := models.Verdict{
		Status:      reason,
		Result:      failedResult,
		Score:       failedScore,
		VideoLink:   reason,
		CompletedAt: s.now().UTC(),
	}
	if err := s.closeAttempt(ctx, claims.CandidateID, verdict); err != nil {
		return nil, err
	}

	return &ExamResultResponse{
		Success: true,
		Message: "Assessment failure recorded",
	}, nil
}

// closeAttempt persists the verdict with a conditional update and notifies the
// recruiter. Exactly one concurrent caller wins; the rest get ErrAlreadySubmitted.
func (s *examService) closeAttempt(ctx context.Context, candidateID uint, verdict models.Verdict) error {
	err := s.repo.Candidate().CloseAttempt(ctx, candidateID, verdict)
	switch {
	case errors.Is(err, repositories.ErrAttemptClosed):
		s.logger.Warn("Verdict rejected, attempt already closed", "candidate_id", candidateID)
		return ErrAlreadySubmitted
	case errors.Is(err, repositories.ErrEmptyVerdict):
		return fieldError("result", "verdict result must not be empty")
	case repositories.IsNotFoundError(err):
		return ErrCandidateNotFound
	case err != nil:
		return fmt.Errorf("failed to record verdict: %w", err)
	}

	s.logger.Info("Verdict recorded",
		"candidate_id", candidateID,
		"status", verdict.Status,
		"result", verdict.Result,
		"score", verdict.Score)

	// The verdict is durable from here on; notification problems must not surface.
	notifyCtx := context.WithoutCancel(ctx)
	candidate, err := s.repo.Candidate().GetByID(notifyCtx, candidateID)
	if err != nil {
		s.logger.Error("Failed to reload candidate for notification", "candidate_id", candidateID, "error", err)
		return nil
	}
	s.notifier.Notify(notifyCtx, candidate)
	return nil
}

func (s *examService) openCandidate(ctx context.Context, claims *auth.Claims) (*models.Candidate, error) {
	if err := auth.Authorize(claims, models.ScopeTestTaker).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
	}

	candidate, err := s.repo.Candidate().GetByID(ctx, claims.CandidateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	if IsAttemptClosed(candidate) {
		return nil, ErrAlreadyAttempted
	}
	return candidate, nil
}

func candidateSessionUser(c *models.Candidate) *SessionUser {
	return &SessionUser{
		ID:       c.ID,
		Name:     c.Name,
		Email:    c.Email,
		Username: c.Username,
		Scope:    models.ScopeTestTaker,
		Program:  c.Program,
		Project:  c.Project,
		Bank:     BankName(c.Program, c.Project),
		Status:   c.Status,
	}
}
