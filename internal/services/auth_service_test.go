package services

import (
	"context"
	"errors"
	"testing"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories/casdoor"
	"github.com/highspring-tester/hat/internal/validator"
)

type stubSSO struct {
	identity *casdoor.Identity
	err      error
}

func (s stubSSO) Verify(token string) (*casdoor.Identity, error) {
	return s.identity, s.err
}

func TestAuthService_AdminLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Auth()

	_, err := svc.CreateUser(ctx, &CreateUserRequest{
		Name: "Quinn", Email: "Quinn@hat.local", Username: "Quinn", Password: "correct-horse",
		Scope: models.ScopeQuizzer, Role: models.RoleEditor,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	resp, err := svc.Login(ctx, models.ScopeQuizzer, &LoginRequest{Username: "quinn", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := svc.Verify(resp.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Scope != models.ScopeQuizzer || claims.Role != models.RoleEditor || claims.Subject != "quinn" {
		t.Errorf("claims = %+v", claims)
	}
	if resp.ExpiresIn != 8*60*60 {
		t.Errorf("expiresIn = %d", resp.ExpiresIn)
	}

	tests := []struct {
		name    string
		scope   models.Scope
		req     LoginRequest
		wantErr error
	}{
		{"wrong scope", models.ScopeEnrollment, LoginRequest{Username: "quinn", Password: "correct-horse"}, ErrUnauthorized},
		{"wrong password", models.ScopeQuizzer, LoginRequest{Username: "quinn", Password: "nope"}, ErrUnauthorized},
		{"unknown scope", "superuser", LoginRequest{Username: "quinn", Password: "correct-horse"}, ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.scope, &tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := svc.Verify("garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Verify garbage: expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_TestTakerLoginDelegates(t *testing.T) {
	env := newTestEnv(t)
	seedGoBackend(t, env)

	resp, err := env.manager.Auth().Login(context.Background(), models.ScopeTestTaker, &LoginRequest{Username: "jane@corp.io", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.Scope != models.ScopeTestTaker || resp.User.Bank != "Go Backend" {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestAuthService_CreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Auth()

	base := CreateUserRequest{Name: "R", Email: "r@hat.local", Username: "recruiter", Password: "long-enough", Scope: models.ScopeEnrollment, Role: models.RoleRecruiter}
	if _, err := svc.CreateUser(ctx, &base); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateUser(ctx, &base); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate: expected ErrConflict, got %v", err)
	}

	editorInEnrollment := base
	editorInEnrollment.Username, editorInEnrollment.Email = "other", "other@hat.local"
	editorInEnrollment.Role = models.RoleEditor
	if _, err := svc.CreateUser(ctx, &editorInEnrollment); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("editor in enrollment: expected ErrValidationFailed, got %v", err)
	}

	testTaker := base
	testTaker.Username, testTaker.Email = "tt", "tt@hat.local"
	testTaker.Scope = models.ScopeTestTaker
	if _, err := svc.CreateUser(ctx, &testTaker); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("test-taker admin: expected ErrValidationFailed, got %v", err)
	}
}

func TestAuthService_SSOLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.manager.Auth().SSOLogin(ctx, &SSOLoginRequest{Token: "t", Scope: models.ScopeQuizzer}); !errors.Is(err, ErrSSODisabled) {
		t.Fatalf("expected ErrSSODisabled, got %v", err)
	}

	identity := &casdoor.Identity{
		ExternalID: "casdoor-42",
		Name:       "Mona",
		Email:      "mona@hat.local",
		Roles:      []models.UserRole{models.RoleManager},
	}
	svc := NewAuthService(env.repo, env.issuer, env.manager.Exam(), stubSSO{identity: identity}, testLogger(), validator.New())

	resp, err := svc.SSOLogin(ctx, &SSOLoginRequest{Token: "t", Scope: models.ScopeEnrollment})
	if err != nil {
		t.Fatalf("SSOLogin: %v", err)
	}
	claims, _ := env.issuer.Verify(resp.AccessToken)
	if claims.Role != models.RoleManager || claims.Subject != "casdoor-42" {
		t.Errorf("claims = %+v", claims)
	}

	noRole := NewAuthService(env.repo, env.issuer, env.manager.Exam(), stubSSO{identity: &casdoor.Identity{ExternalID: "x"}}, testLogger(), validator.New())
	if _, err := noRole.SSOLogin(ctx, &SSOLoginRequest{Token: "t", Scope: models.ScopeQuizzer}); !errors.Is(err, ErrForbidden) {
		t.Errorf("no role: expected ErrForbidden, got %v", err)
	}

	rejected := NewAuthService(env.repo, env.issuer, env.manager.Exam(), stubSSO{err: errors.New("bad signature")}, testLogger(), validator.New())
	if _, err := rejected.SSOLogin(ctx, &SSOLoginRequest{Token: "t", Scope: models.ScopeQuizzer}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("bad token: expected ErrUnauthorized, got %v", err)
	}
}
