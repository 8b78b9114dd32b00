package services

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/events"
	"github.com/highspring-tester/hat/internal/mail"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/validator"
)

const generatedPasswordBytes = 6

var invitationTemplate = template.Must(template.New("invite").Parse(`<html><body>
<p>Hello {{.Name}},</p>
<p>You have been invited to the {{.Bank}} assessment.</p>
<p>Username: <b>{{.Username}}</b><br>Password: <b>{{.Password}}</b></p>
<p>The password works for a single attempt.</p>
</body></html>`))

type enrollmentService struct {
	repo         repositories.Repository
	importExport ImportExportService
	mailer       mail.Sender
	publisher    events.EventPublisher
	topic        string
	mailTimeout  time.Duration
	logger       *slog.Logger
	validator    *validator.Validator
}

func NewEnrollmentService(repo repositories.Repository, importExport ImportExportService, mailer mail.Sender, publisher events.EventPublisher, topic string, mailTimeout time.Duration, logger *slog.Logger, validator *validator.Validator) EnrollmentService {
	if mailTimeout <= 0 {
		mailTimeout = 10 * time.Second
	}
	return &enrollmentService{
		repo:         repo,
		importExport: importExport,
		mailer:       mailer,
		publisher:    publisher,
		topic:        topic,
		mailTimeout:  mailTimeout,
		logger:       logger,
		validator:    validator,
	}
}

// EnrollCandidate creates an invitee with a one-time password. Recruiter contact
// defaults to the enrolling admin.
func (s *enrollmentService) EnrollCandidate(ctx context.Context, req *EnrollCandidateRequest, enrolledBy *auth.Claims) (*EnrollCandidateResponse, error) {
	if err := auth.Authorize(enrolledBy, models.ScopeEnrollment).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	bank := BankName(req.Program, req.Project)
	if _, err := QuestionPrefix(bank); err != nil {
		return nil, fieldError("program", err.Error())
	}

	password := req.Password
	if password == "" {
		generated, err := auth.GeneratePassword(generatedPasswordBytes)
		if err != nil {
			return nil, err
		}
		password = generated
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	recruiterName, recruiterEmail := enrolledBy.Name, enrolledBy.Email
	if req.RecruiterEmail != "" {
		recruiterName, recruiterEmail = req.RecruiterName, req.RecruiterEmail
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := time.Now()
	candidate := &models.Candidate{
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		Username:       email,
		Password:       hash,
		RecruiterName:  strings.TrimSpace(recruiterName),
		RecruiterEmail: strings.ToLower(strings.TrimSpace(recruiterEmail)),
		Program:        strings.TrimSpace(req.Program),
		Project:        strings.TrimSpace(req.Project),
		Status:         models.StatusMailSent,
		CreatedBy:      enrolledBy.Subject,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Candidate().Create(ctx, candidate); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: candidate %s", ErrConflict, email)
		}
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}

	s.logger.Info("Candidate enrolled", "candidate_id", candidate.ID, "bank", bank, "enrolled_by", enrolledBy.Subject)

	s.sendInvitation(ctx, candidate, bank, password)

	event := events.NewEvent(events.TypeCandidateEnrolled, events.CandidateEnrolledEvent{
		CandidateID: candidate.ID,
		Email:       candidate.Email,
		Bank:        bank,
		EnrolledBy:  enrolledBy.Subject,
	})
	if err := s.publisher.Publish(ctx, s.topic, event); err != nil {
		s.logger.Error("Failed to publish enrollment event", "candidate_id", candidate.ID, "error", err)
	}

	return &EnrollCandidateResponse{
		Candidate: candidate,
		Bank:      bank,
		Password:  password,
	}, nil
}

func (s *enrollmentService) ListResults(ctx context.Context, filters repositories.CandidateFilters) (*CandidateListResponse, error) {
	candidates, total, err := s.repo.Candidate().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return &CandidateListResponse{Candidates: candidates, Total: total}, nil
}

func (s *enrollmentService) ExportResults(ctx context.Context, filters repositories.CandidateFilters, w io.Writer) error {
	return s.importExport.ExportCandidates(ctx, filters, w)
}

// sendInvitation is best effort; the plain password is also returned to the caller.
func (s *enrollmentService) sendInvitation(ctx context.Context, c *models.Candidate, bank, password string) {
	var buf strings.Builder
	err := invitationTemplate.Execute(&buf, map[string]string{
		"Name":     c.Name,
		"Bank":     bank,
		"Username": c.Username,
		"Password": password,
	})
	if err != nil {
		s.logger.Error("Failed to render invitation", "candidate_id", c.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()
	if err := s.mailer.Send(ctx, c.Email, "Your assessment invitation", buf.String()); err != nil {
		s.logger.Warn("Invitation mail failed", "candidate_id", c.ID, "error", err)
	}
}
