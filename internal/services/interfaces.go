package services

import (
	"context"
	"io"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

// ===== AUTH =====

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type SSOLoginRequest struct {
	Token string       `json:"token" validate:"required"`
	Scope models.Scope `json:"scope" validate:"required,admin_scope"`
}

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email,max=255"`
	Username string          `json:"username" validate:"required,min=3,max=255"`
	Password string          `json:"password" validate:"required,min=8,max=128"`
	Scope    models.Scope    `json:"scope" validate:"required,admin_scope"`
	Role     models.UserRole `json:"role" validate:"required,admin_role"`
}

// SessionUser describes the authenticated principal in login responses.
type SessionUser struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Scope    models.Scope    `json:"scope"`
	Role     models.UserRole `json:"role,omitempty"`
	Program  string          `json:"program,omitempty"`
	Project  string          `json:"project,omitempty"`
	Bank     string          `json:"bank,omitempty"`
	Status   string          `json:"status,omitempty"`
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int64        `json:"expiresIn"`
	User        *SessionUser `json:"user"`
}

type AuthService interface {
	Login(ctx context.Context, scope models.Scope, req *LoginRequest) (*AuthResponse, error)
	SSOLogin(ctx context.Context, req *SSOLoginRequest) (*AuthResponse, error)
	CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error)
	Verify(token string) (*auth.Claims, error)
}

// ===== EXAM =====

type ExamQuestion struct {
	ID       string                `json:"id"`
	Question string                `json:"question"`
	Options  []string              `json:"options"`
	Answer   string                `json:"answer,omitempty"`
	Time     int                   `json:"time"`
	Type     models.DifficultyTier `json:"type"`
	Links    []string              `json:"links"`
}

type ExamSetupResponse struct {
	UserDetails *SessionUser   `json:"userDetails"`
	Questions   []ExamQuestion `json:"questions"`
}

type SubmitRequest struct {
	// AttemptedQuestions falls back to X of the "X / Y" score string when omitted.
	AttemptedQuestions *int    `json:"attemptedQuestions" validate:"omitnil,min=0"`
	Percentage         float64 `json:"percentage" validate:"fraction"`
	ScoreString        string  `json:"scoreString" validate:"required,notblank,max=32"`
}

type FailRequest struct {
	FailureReason string `json:"failureReason" validate:"required,notblank,max=500"`
}

type ExamResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ExamAssembler interface {
	Assemble(ctx context.Context, bank string) ([]ExamQuestion, error)
}

type ExamService interface {
	Authenticate(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	FetchExam(ctx context.Context, claims *auth.Claims) (*ExamSetupResponse, error)
	Submit(ctx context.Context, claims *auth.Claims, req *SubmitRequest) (*ExamResultResponse, error)
	Fail(ctx context.Context, claims *auth.Claims, req *FailRequest) (*ExamResultResponse, error)
}

// ===== QUESTION BANK =====

type QuestionRequest struct {
	Question   string                `json:"question" validate:"required,max=5000"`
	Difficulty models.DifficultyTier `json:"difficulty" validate:"required,difficulty_tier"`
	Options    string                `json:"options" validate:"required,options_list"`
	Answer     string                `json:"answer" validate:"required,max=1000"`
	Links      []string              `json:"links" validate:"max=4,dive,url"`
}

type QuestionListResponse struct {
	Bank      string             `json:"bank"`
	Questions []*models.Question `json:"questions"`
	Total     int                `json:"total"`
}

type QuestionBankService interface {
	ListByBank(ctx context.Context, bank string) (*QuestionListResponse, error)
	NextID(ctx context.Context, bank string) (string, error)
	PeekNextID(ctx context.Context, bank string) (string, error)
	Add(ctx context.Context, bank string, req *QuestionRequest, editor string) (*models.Question, error)
	Update(ctx context.Context, questionID string, req *QuestionRequest, editor string) (*models.Question, error)
	Delete(ctx context.Context, questionID string) error
	Stats(ctx context.Context, bank string) (*models.BankStats, error)
}

// ===== IMPORT / EXPORT =====

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Bank     string           `json:"bank"`
	Imported []string         `json:"imported"`
	Failed   []ImportRowError `json:"failed"`
}

type ImportExportService interface {
	ImportQuestions(ctx context.Context, bank string, r io.Reader, editor string) (*ImportResult, error)
	ExportQuestions(ctx context.Context, bank string, w io.Writer) error
	ExportCandidates(ctx context.Context, filters repositories.CandidateFilters, w io.Writer) error
}

// ===== ENROLLMENT =====

type EnrollCandidateRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email,max=255"`
	Program        string `json:"program" validate:"required,max=100"`
	Project        string `json:"project" validate:"max=100"`
	Password       string `json:"password" validate:"omitempty,min=6,max=128"`
	RecruiterName  string `json:"recruiterName" validate:"omitempty,max=100"`
	RecruiterEmail string `json:"recruiterEmail" validate:"omitempty,email,max=255"`
}

type EnrollCandidateResponse struct {
	Candidate *models.Candidate `json:"candidate"`
	Bank      string            `json:"bank"`
	// Password is the plain one-time credential. It is only ever returned here.
	Password string `json:"password"`
}

type CandidateListResponse struct {
	Candidates []*models.Candidate `json:"candidates"`
	Total      int64               `json:"total"`
}

type EnrollmentService interface {
	EnrollCandidate(ctx context.Context, req *EnrollCandidateRequest, enrolledBy *auth.Claims) (*EnrollCandidateResponse, error)
	ListResults(ctx context.Context, filters repositories.CandidateFilters) (*CandidateListResponse, error)
	ExportResults(ctx context.Context, filters repositories.CandidateFilters, w io.Writer) error
}

// ===== NOTIFICATIONS =====

type ResultNotifier interface {
	// Notify never fails the caller. Delivery problems are logged and queued for retry.
	Notify(ctx context.Context, candidate *models.Candidate)
	RetryPending(ctx context.Context) (int, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Auth() AuthService
	Exam() ExamService
	Assembler() ExamAssembler
	QuestionBank() QuestionBankService
	ImportExport() ImportExportService
	Enrollment() EnrollmentService
	Notifier() ResultNotifier

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
