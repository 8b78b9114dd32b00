package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testIssuer() *auth.Issuer {
	return auth.NewIssuer("handler-secret-handler-secret-1234", "hat-test", auth.TokenTTLs{Admin: time.Hour, Exam: time.Hour})
}

func bearer(t *testing.T, issuer *auth.Issuer, scope models.Scope, role models.UserRole) string {
	t.Helper()
	claims := auth.Claims{Scope: scope, Role: role, CandidateID: 7}
	claims.Subject = "tester"
	token, err := issuer.IssueFor(claims)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

// ----- services -----

type fakeAuth struct {
	issuer *auth.Issuer
}

func (f *fakeAuth) Login(ctx context.Context, scope models.Scope, req *services.LoginRequest) (*services.AuthResponse, error) {
	if req.Password != "good" {
		return nil, services.ErrUnauthorized
	}
	token, _ := f.issuer.IssueFor(auth.Claims{Scope: scope, Role: models.RoleOwner})
	return &services.AuthResponse{AccessToken: token, TokenType: "Bearer"}, nil
}

func (f *fakeAuth) SSOLogin(ctx context.Context, req *services.SSOLoginRequest) (*services.AuthResponse, error) {
	return nil, services.ErrSSODisabled
}

func (f *fakeAuth) CreateUser(ctx context.Context, req *services.CreateUserRequest) (*models.User, error) {
	return nil, services.ErrForbidden
}

func (f *fakeAuth) Verify(token string) (*auth.Claims, error) {
	return f.issuer.Verify(token)
}

type fakeExam struct {
	submitErr error
	lastClaim *auth.Claims
	lastReq   *services.SubmitRequest
}

func (f *fakeExam) Authenticate(ctx context.Context, req *services.LoginRequest) (*services.AuthResponse, error) {
	return nil, services.ErrUnauthorized
}

func (f *fakeExam) FetchExam(ctx context.Context, claims *auth.Claims) (*services.ExamSetupResponse, error) {
	f.lastClaim = claims
	return &services.ExamSetupResponse{
		UserDetails: &services.SessionUser{ID: claims.CandidateID, Bank: "Go Backend"},
		Questions: []services.ExamQuestion{{
			ID: "GB001", Question: "q", Options: []string{"a", "b"}, Answer: "a",
			Time: 1, Type: models.DifficultyEasy, Links: []string{},
		}},
	}, nil
}

func (f *fakeExam) Submit(ctx context.Context, claims *auth.Claims, req *services.SubmitRequest) (*services.ExamResultResponse, error) {
	f.lastReq = req
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &services.ExamResultResponse{Success: true, Message: "Result recorded"}, nil
}

func (f *fakeExam) Fail(ctx context.Context, claims *auth.Claims, req *services.FailRequest) (*services.ExamResultResponse, error) {
	return &services.ExamResultResponse{Success: true, Message: "Failure recorded"}, nil
}

type fakeBank struct {
	deleted []string
}

func (f *fakeBank) ListByBank(ctx context.Context, bank string) (*services.QuestionListResponse, error) {
	return &services.QuestionListResponse{Bank: bank, Questions: []*models.Question{}}, nil
}

func (f *fakeBank) NextID(ctx context.Context, bank string) (string, error) { return "GB001", nil }

func (f *fakeBank) PeekNextID(ctx context.Context, bank string) (string, error) { return "GB001", nil }

func (f *fakeBank) Add(ctx context.Context, bank string, req *services.QuestionRequest, editor string) (*models.Question, error) {
	return &models.Question{QuestionID: "GB001", Bank: bank, Question: req.Question, CreatedBy: editor}, nil
}

func (f *fakeBank) Update(ctx context.Context, questionID string, req *services.QuestionRequest, editor string) (*models.Question, error) {
	return nil, services.ErrQuestionNotFound
}

func (f *fakeBank) Delete(ctx context.Context, questionID string) error {
	f.deleted = append(f.deleted, questionID)
	return nil
}

func (f *fakeBank) Stats(ctx context.Context, bank string) (*models.BankStats, error) {
	return &models.BankStats{Bank: bank}, nil
}

type fakeImportExport struct {
	uploaded string
}

func (f *fakeImportExport) ImportQuestions(ctx context.Context, bank string, r io.Reader, editor string) (*services.ImportResult, error) {
	b, _ := io.ReadAll(r)
	f.uploaded = string(b)
	return &services.ImportResult{Bank: bank, Imported: []string{"GB001"}, Failed: []services.ImportRowError{}}, nil
}

func (f *fakeImportExport) ExportQuestions(ctx context.Context, bank string, w io.Writer) error {
	_, err := io.WriteString(w, "xlsx-bytes")
	return err
}

func (f *fakeImportExport) ExportCandidates(ctx context.Context, filters repositories.CandidateFilters, w io.Writer) error {
	_, err := io.WriteString(w, "xlsx-bytes")
	return err
}

type fakeEnrollment struct {
	filters repositories.CandidateFilters
}

func (f *fakeEnrollment) EnrollCandidate(ctx context.Context, req *services.EnrollCandidateRequest, enrolledBy *auth.Claims) (*services.EnrollCandidateResponse, error) {
	return nil, services.ErrConflict
}

func (f *fakeEnrollment) ListResults(ctx context.Context, filters repositories.CandidateFilters) (*services.CandidateListResponse, error) {
	f.filters = filters
	return &services.CandidateListResponse{Candidates: []*models.Candidate{}}, nil
}

func (f *fakeEnrollment) ExportResults(ctx context.Context, filters repositories.CandidateFilters, w io.Writer) error {
	_, err := io.WriteString(w, "xlsx-bytes")
	return err
}

type fakeManager struct {
	auth       *fakeAuth
	exam       *fakeExam
	bank       *fakeBank
	io         *fakeImportExport
	enrollment *fakeEnrollment
	healthErr  error
}

func (m *fakeManager) Auth() services.AuthService                 { return m.auth }
func (m *fakeManager) Exam() services.ExamService                 { return m.exam }
func (m *fakeManager) Assembler() services.ExamAssembler          { return nil }
func (m *fakeManager) QuestionBank() services.QuestionBankService { return m.bank }
func (m *fakeManager) ImportExport() services.ImportExportService { return m.io }
func (m *fakeManager) Enrollment() services.EnrollmentService     { return m.enrollment }
func (m *fakeManager) Notifier() services.ResultNotifier          { return nil }
func (m *fakeManager) Initialize(ctx context.Context) error       { return nil }
func (m *fakeManager) HealthCheck(ctx context.Context) error      { return m.healthErr }
func (m *fakeManager) Shutdown(ctx context.Context) error         { return nil }

type testServer struct {
	router  *gin.Engine
	issuer  *auth.Issuer
	manager *fakeManager
}

func newTestServer() *testServer {
	issuer := testIssuer()
	m := &fakeManager{
		auth:       &fakeAuth{issuer: issuer},
		exam:       &fakeExam{},
		bank:       &fakeBank{},
		io:         &fakeImportExport{},
		enrollment: &fakeEnrollment{},
	}
	router := gin.New()
	SetupMiddleware(router, testLogger())
	NewHandlerManager(m, testLogger()).SetupRoutes(router)
	return &testServer{router: router, issuer: issuer, manager: m}
}

func (s *testServer) do(method, path, authHeader, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}
