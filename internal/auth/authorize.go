package auth

import (
	"fmt"
	"slices"

	"github.com/highspring-tester/hat/internal/models"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil when allowed, otherwise ErrForbidden carrying the reason.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

// Authorize checks claims against the scope an operation requires and, when
// allowedRoles is non-empty, against the role allow-list. Nil claims are denied.
func Authorize(claims *Claims, required models.Scope, allowedRoles ...models.UserRole) Decision {
	if claims == nil {
		return Decision{Reason: "no session"}
	}
	if claims.Scope != required {
		return Decision{Reason: fmt.Sprintf("scope %q cannot access %q operations", claims.Scope, required)}
	}
	if len(allowedRoles) > 0 && !slices.Contains(allowedRoles, claims.Role) {
		return Decision{Reason: fmt.Sprintf("role %q is not allowed", claims.Role)}
	}
	return Decision{Allowed: true}
}
