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
	"github.com/highspring-tester/hat/internal/repositories/casdoor"
	"github.com/highspring-tester/hat/internal/validator"
)

// SSOVerifier validates tokens of an external identity provider.
type SSOVerifier interface {
	Verify(token string) (*casdoor.Identity, error)
}

type authService struct {
	repo      repositories.Repository
	issuer    *auth.Issuer
	exam      ExamService
	sso       SSOVerifier
	logger    *slog.Logger
	validator *validator.Validator
}

// NewAuthService builds the login service. sso may be nil when single sign-on is off.
func NewAuthService(repo repositories.Repository, issuer *auth.Issuer, exam ExamService, sso SSOVerifier, logger *slog.Logger, validator *validator.Validator) AuthService {
	return &authService{
		repo:      repo,
		issuer:    issuer,
		exam:      exam,
		sso:       sso,
		logger:    logger,
		validator: validator,
	}
}

// Login authenticates against the given scope. Test-takers go through the exam
// state machine; admins are checked against their stored account.
func (s *authService) Login(ctx context.Context, scope models.Scope, req *LoginRequest) (*AuthResponse, error) {
	switch {
	case scope == models.ScopeTestTaker:
		return s.exam.Authenticate(ctx, req)
	case !scope.IsAdmin():
		return nil, fieldError("scope", "must be enrollment, quizzer or test-taker")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.repo.User().GetByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := auth.CheckPassword(user.Password, req.Password)
	if err != nil {
		s.logger.Error("Stored user password is unreadable", "user_id", user.ID, "error", err)
		return nil, ErrUnauthorized
	}
	if !ok || user.Scope != scope {
		return nil, ErrUnauthorized
	}

	return s.issueAdmin(user.Username, user.Name, user.Email, scope, user.Role, user.ID)
}

// SSOLogin exchanges a Casdoor token for a local admin token.
func (s *authService) SSOLogin(ctx context.Context, req *SSOLoginRequest) (*AuthResponse, error) {
	if s.sso == nil {
		return nil, ErrSSODisabled
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	identity, err := s.sso.Verify(req.Token)
	if err != nil {
		s.logger.Warn("SSO token rejected", "error", err)
		return nil, ErrUnauthorized
	}

	role, ok := identity.RoleFor(req.Scope)
	if !ok {
		return nil, fmt.Errorf("%w: no %s role for %s", ErrForbidden, req.Scope, identity.Email)
	}

	s.logger.Info("SSO login", "subject", identity.ExternalID, "scope", req.Scope, "role", role)
	return s.issueAdmin(identity.ExternalID, identity.Name, identity.Email, req.Scope, role, 0)
}

// CreateUser registers an admin account. Roles must belong to the scope.
func (s *authService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	allowed := false
	for _, r := range models.RolesForScope(req.Scope) {
		if r == req.Role {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fieldError("role", fmt.Sprintf("%s is not a %s role", req.Role, req.Scope))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Username:  strings.ToLower(strings.TrimSpace(req.Username)),
		Password:  hash,
		Scope:     req.Scope,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: user %s", ErrConflict, user.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Admin user created", "user_id", user.ID, "scope", user.Scope, "role", user.Role)
	return user, nil
}

// Verify maps token errors onto service errors.
func (s *authService) Verify(token string) (*auth.Claims, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, auth.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	return claims, nil
}

func (s *authService) issueAdmin(subject, name, email string, scope models.Scope, role models.UserRole, id uint) (*AuthResponse, error) {
	claims := auth.Claims{
		Scope: scope,
		Role:  role,
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
	}
	token, err := s.issuer.IssueFor(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.issuer.TTLFor(scope).Seconds()),
		User: &SessionUser{
			ID:       id,
			Name:     name,
			Email:    email,
			Username: subject,
			Scope:    scope,
			Role:     role,
		},
	}, nil
}
