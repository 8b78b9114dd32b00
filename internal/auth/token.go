package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/highspring-tester/hat/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrForbidden    = errors.New("forbidden")
)

// Claims is the session claim set carried by every access token.
type Claims struct {
	Scope       models.Scope    `json:"scope"`
	Role        models.UserRole `json:"role,omitempty"`
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	CandidateID uint            `json:"candidate_id,omitempty"`
	Bank        string          `json:"bank,omitempty"`
	jwt.RegisteredClaims
}

// TokenTTLs holds token lifetimes per scope family.
type TokenTTLs struct {
	Admin time.Duration
	Exam  time.Duration
}

type Issuer struct {
	secret []byte
	issuer string
	ttls   TokenTTLs
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttls TokenTTLs) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttls:   ttls,
		now:    time.Now,
	}
}

// TTLFor returns the lifetime of tokens issued for scope.
func (i *Issuer) TTLFor(scope models.Scope) time.Duration {
	if scope == models.ScopeTestTaker {
		return i.ttls.Exam
	}
	return i.ttls.Admin
}

// Issue signs claims with the given lifetime.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	if !claims.Scope.IsValid() {
		return "", fmt.Errorf("cannot issue token for scope %q", claims.Scope)
	}
	if claims.Scope.IsAdmin() && !claims.Role.IsValid() {
		return "", fmt.Errorf("admin scope %q requires a role", claims.Scope)
	}

	now := i.now()
	claims.Issuer = i.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueFor signs claims with the lifetime of their scope.
func (i *Issuer) IssueFor(claims Claims) (string, error) {
	return i.Issue(claims, i.TTLFor(claims.Scope))
}

// Verify parses and validates a signed token.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || !claims.Scope.IsValid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
