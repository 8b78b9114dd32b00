package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/events"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

func intPtr(n int) *int { return &n }

func seedGoBackend(t *testing.T, env *testEnv) *models.Candidate {
	t.Helper()
	env.addQuestions(t, "Go Backend", models.DifficultyEasy, 5)
	env.addQuestions(t, "Go Backend", models.DifficultyModerate, 3)
	env.addQuestions(t, "Go Backend", models.DifficultyHard, 4)
	return env.addCandidate(t, "jane@corp.io", "s3cret!", "Go", "Backend")
}

func TestExamService_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()

	resp, err := env.manager.Exam().Authenticate(ctx, &LoginRequest{Username: "  JANE@corp.io", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	claims, err := env.issuer.Verify(resp.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Scope != models.ScopeTestTaker || claims.CandidateID != c.ID || claims.Bank != "Go Backend" {
		t.Errorf("claims = %+v", claims)
	}
	if resp.User.Bank != "Go Backend" || resp.ExpiresIn != 3*60*60 {
		t.Errorf("response = %+v / %+v", resp, resp.User)
	}

	tests := []struct {
		name    string
		req     LoginRequest
		wantErr error
	}{
		{"wrong password", LoginRequest{Username: "jane@corp.io", Password: "nope"}, ErrUnauthorized},
		{"unknown user", LoginRequest{Username: "joe@corp.io", Password: "s3cret!"}, ErrUnauthorized},
		{"missing password", LoginRequest{Username: "jane@corp.io"}, ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.manager.Exam().Authenticate(ctx, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExamService_SecondLoginAfterResult(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()

	if _, err := env.manager.Exam().Submit(ctx, examClaims(c), &SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.8, ScoreString: "16 / 20"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := env.manager.Exam().Authenticate(ctx, &LoginRequest{Username: "jane@corp.io", Password: "s3cret!"})
	if !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("expected ErrAlreadyAttempted, got %v", err)
	}
	if _, err := env.manager.Exam().FetchExam(ctx, examClaims(c)); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("FetchExam after close: expected ErrAlreadyAttempted, got %v", err)
	}
}

func TestExamService_FetchExam(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		setup, err := env.manager.Exam().FetchExam(ctx, examClaims(c))
		if err != nil {
			t.Fatalf("FetchExam: %v", err)
		}
		if len(setup.Questions) != 9 {
			t.Errorf("questions = %d, want 9", len(setup.Questions))
		}
		if setup.UserDetails.Email != c.Email {
			t.Errorf("user details = %+v", setup.UserDetails)
		}
	}

	stored, _ := env.repo.Candidate().GetByID(ctx, c.ID)
	if stored.Result != "" || stored.Status != models.StatusMailSent {
		t.Errorf("FetchExam mutated candidate: %+v", stored)
	}

	admin := &auth.Claims{Scope: models.ScopeQuizzer, Role: models.RoleOwner, CandidateID: c.ID, Bank: "Go Backend"}
	if _, err := env.manager.Exam().FetchExam(ctx, admin); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin scope: expected ErrForbidden, got %v", err)
	}
	if _, err := env.manager.Exam().FetchExam(ctx, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("nil claims: expected ErrForbidden, got %v", err)
	}

	other := env.addCandidate(t, "sam@corp.io", "pw", "Rust", "Systems")
	if _, err := env.manager.Exam().FetchExam(ctx, examClaims(other)); !errors.Is(err, ErrBankNotFound) {
		t.Errorf("empty bank: expected ErrBankNotFound, got %v", err)
	}
}

func TestExamService_SubmitVerdicts(t *testing.T) {
	tests := []struct {
		name       string
		req        SubmitRequest
		wantStatus string
		wantScore  string
	}{
		{"pass", SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.8, ScoreString: "16 / 20"}, models.StatusPass, "80.0%"},
		{"not qualified", SubmitRequest{AttemptedQuestions: intPtr(10), Percentage: 0.9, ScoreString: "9 / 10"}, models.StatusNotQualified, "90.0%"},
		{"fail", SubmitRequest{AttemptedQuestions: intPtr(30), Percentage: 0.5, ScoreString: "15 / 30"}, models.StatusFail, "50.0%"},
		{"attempted from label", SubmitRequest{Percentage: 0.8, ScoreString: "18 / 25"}, models.StatusPass, "80.0%"},
		{"label below floor", SubmitRequest{Percentage: 1, ScoreString: "12 / 25"}, models.StatusNotQualified, "100.0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			c := seedGoBackend(t, env)
			ctx := context.Background()

			resp, err := env.manager.Exam().Submit(ctx, examClaims(c), &tt.req)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if !resp.Success {
				t.Errorf("response = %+v", resp)
			}

			stored, _ := env.repo.Candidate().GetByID(ctx, c.ID)
			if stored.Status != tt.wantStatus || stored.Score != tt.wantScore {
				t.Errorf("stored status/score = %q/%q, want %q/%q", stored.Status, stored.Score, tt.wantStatus, tt.wantScore)
			}
			if stored.Result != tt.req.ScoreString || stored.VideoLink != "" || stored.CompletedAt == nil {
				t.Errorf("stored = %+v", stored)
			}

			sent := env.mailer.Sent()
			if len(sent) != 1 || sent[0].To != "rita@hat.local" || !strings.Contains(sent[0].HTML, tt.wantScore) {
				t.Errorf("mails = %+v", sent)
			}
			published := env.publisher.GetPublishedEvents()
			if len(published) != 1 || published[0].Type != events.TypeResultRecorded {
				t.Fatalf("events = %+v", published)
			}
			data := published[0].Data.(events.ResultRecordedEvent)
			if data.CandidateID != c.ID || data.Status != tt.wantStatus || !data.MailDelivered {
				t.Errorf("event data = %+v", data)
			}
		})
	}
}

func TestExamService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()

	bad := []SubmitRequest{
		{Percentage: 1.5, ScoreString: "20 / 20", AttemptedQuestions: intPtr(20)},
		{Percentage: 0.5, AttemptedQuestions: intPtr(20)},
		{Percentage: 0.5, ScoreString: "not a label"},
		{Percentage: 0.5, ScoreString: "20 / 20", AttemptedQuestions: intPtr(-1)},
	}
	for _, req := range bad {
		if _, err := env.manager.Exam().Submit(ctx, examClaims(c), &req); !errors.Is(err, ErrValidationFailed) {
			t.Errorf("Submit(%+v): expected ErrValidationFailed, got %v", req, err)
		}
	}

	stored, _ := env.repo.Candidate().GetByID(ctx, c.ID)
	if stored.Result != "" {
		t.Errorf("invalid submissions closed the attempt: %+v", stored)
	}
}

func TestExamService_SecondCallIsRejected(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()
	exam := env.manager.Exam()

	if _, err := exam.Submit(ctx, examClaims(c), &SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.8, ScoreString: "16 / 20"}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	first, _ := env.repo.Candidate().GetByID(ctx, c.ID)

	if _, err := exam.Submit(ctx, examClaims(c), &SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.1, ScoreString: "2 / 20"}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second Submit: expected ErrAlreadySubmitted, got %v", err)
	}
	if _, err := exam.Fail(ctx, examClaims(c), &FailRequest{FailureReason: "tab switched"}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("Fail after Submit: expected ErrAlreadySubmitted, got %v", err)
	}

	after, _ := env.repo.Candidate().GetByID(ctx, c.ID)
	if after.Status != first.Status || after.Result != first.Result || after.Score != first.Score || after.VideoLink != first.VideoLink {
		t.Errorf("verdict overwritten: before %+v after %+v", first, after)
	}
	if n := len(env.mailer.Sent()); n != 1 {
		t.Errorf("mails sent = %d, want 1", n)
	}
}

func TestExamService_BlankInputKeepsAttemptOpen(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()
	exam := env.manager.Exam()

	if _, err := exam.Submit(ctx, examClaims(c), &SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.8, ScoreString: "   "}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Submit with blank label: expected ErrValidationFailed, got %v", err)
	}
	if _, err := exam.Fail(ctx, examClaims(c), &FailRequest{FailureReason: " \t "}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Fail with blank reason: expected ErrValidationFailed, got %v", err)
	}
	stored, _ := env.repo.Candidate().GetByID(ctx, c.ID)
	if stored.Result != "" || stored.Status == models.StatusPass {
		t.Fatalf("blank input touched the record: %+v", stored)
	}

	if _, err := exam.Fail(ctx, examClaims(c), &FailRequest{FailureReason: "tab switch"}); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if _, err := exam.Submit(ctx, examClaims(c), &SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.8, ScoreString: "16 / 20"}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("Submit after Fail: expected ErrAlreadySubmitted, got %v", err)
	}
	stored, _ = env.repo.Candidate().GetByID(ctx, c.ID)
	if stored.Status != "tab switch" || stored.Result != "0 / 0" {
		t.Errorf("verdict overwritten: %+v", stored)
	}

	if err := env.repo.Candidate().CloseAttempt(ctx, c.ID, models.Verdict{Status: models.StatusPass}); !errors.Is(err, repositories.ErrEmptyVerdict) {
		t.Errorf("CloseAttempt with empty result: expected ErrEmptyVerdict, got %v", err)
	}
}

func TestExamService_Fail(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()

	if _, err := env.manager.Exam().Fail(ctx, examClaims(c), &FailRequest{FailureReason: "Multiple faces detected"}); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	stored, _ := env.repo.Candidate().GetByID(ctx, c.ID)
	if stored.Result != "0 / 0" || stored.Score != "0.0%" || stored.Status != "Multiple faces detected" || stored.VideoLink != "Multiple faces detected" {
		t.Errorf("stored = %+v", stored)
	}

	if _, err := env.manager.Exam().Fail(ctx, examClaims(c), &FailRequest{FailureReason: "again"}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second Fail: expected ErrAlreadySubmitted, got %v", err)
	}
	if _, err := env.manager.Exam().Fail(ctx, examClaims(c), &FailRequest{}); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("empty reason: expected ErrValidationFailed, got %v", err)
	}

	published := env.publisher.GetPublishedEvents()
	if len(published) != 1 || !published[0].Data.(events.ResultRecordedEvent).Disqualified {
		t.Errorf("events = %+v", published)
	}
}

func TestExamService_ConcurrentSubmitAndFail(t *testing.T) {
	env := newTestEnv(t)
	c := seedGoBackend(t, env)
	ctx := context.Background()
	exam := env.manager.Exam()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = exam.Submit(ctx, examClaims(c), &SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.9, ScoreString: "18 / 20"})
			} else {
				_, err = exam.Fail(ctx, examClaims(c), &FailRequest{FailureReason: "window blurred"})
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadySubmitted):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}

	stored, _ := env.repo.Candidate().GetByID(ctx, c.ID)
	switch stored.Result {
	case "18 / 20":
		if stored.Status != models.StatusPass || stored.VideoLink != "" {
			t.Errorf("submit verdict mixed with fail fields: %+v", stored)
		}
	case "0 / 0":
		if stored.Status != "window blurred" || stored.VideoLink != "window blurred" {
			t.Errorf("fail verdict mixed with submit fields: %+v", stored)
		}
	default:
		t.Errorf("unexpected result %q", stored.Result)
	}
	if n := len(env.publisher.GetPublishedEvents()); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
}

func TestExamService_UnknownCandidate(t *testing.T) {
	env := newTestEnv(t)
	claims := &auth.Claims{Scope: models.ScopeTestTaker, CandidateID: 999, Bank: "Go Backend"}
	_, err := env.manager.Exam().Submit(context.Background(), claims, &SubmitRequest{AttemptedQuestions: intPtr(20), Percentage: 0.8, ScoreString: "16 / 20"})
	if !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}
