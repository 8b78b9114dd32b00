package casdoor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/highspring-tester/hat/internal/models"
)

// CasdoorConfig holds Casdoor connection settings
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// Identity is the admin identity asserted by a Casdoor token.
type Identity struct {
	ExternalID string
	Name       string
	Email      string
	Roles      []models.UserRole
}

// RoleFor returns the strongest role of the identity that scope accepts.
func (i *Identity) RoleFor(scope models.Scope) (models.UserRole, bool) {
	for _, role := range models.RolesForScope(scope) {
		if slices.Contains(i.Roles, role) {
			return role, true
		}
	}
	return "", false
}

// SSOVerifier validates Casdoor-issued JWTs.
type SSOVerifier struct {
	client *casdoorsdk.Client
}

func NewSSOVerifier(cfg CasdoorConfig) *SSOVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.OrganizationName,
		cfg.ApplicationName,
	)
	return &SSOVerifier{client: client}
}

// Verify checks the token signature against the application certificate and
// returns the asserted identity.
func (v *SSOVerifier) Verify(token string) (*Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid casdoor token: %w", err)
	}
	if claims.User.Id == "" && claims.User.Name == "" {
		return nil, fmt.Errorf("casdoor token carries no user")
	}
	return IdentityFromUser(&claims.User), nil
}

// IdentityFromUser maps a Casdoor user onto service roles. Casdoor admins are owners.
func IdentityFromUser(u *casdoorsdk.User) *Identity {
	identity := &Identity{
		ExternalID: u.Id,
		Name:       u.DisplayName,
		Email:      strings.ToLower(u.Email),
	}
	if identity.Name == "" {
		identity.Name = u.Name
	}
	if u.IsAdmin {
		identity.Roles = append(identity.Roles, models.RoleOwner)
	}
	for _, r := range u.Roles {
		if r == nil {
			continue
		}
		if role, ok := mapCasdoorRole(r.Name); ok && !slices.Contains(identity.Roles, role) {
			identity.Roles = append(identity.Roles, role)
		}
	}
	return identity
}

func mapCasdoorRole(name string) (models.UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "owner", "admin", "administrator":
		return models.RoleOwner, true
	case "manager":
		return models.RoleManager, true
	case "editor", "quiz-editor", "quizzer":
		return models.RoleEditor, true
	case "recruiter", "enroller":
		return models.RoleRecruiter, true
	}
	return "", false
}
