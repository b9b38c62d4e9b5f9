package reservation

import (
	"strings"

	"github.com/marmoleria/backend/internal/domain/shared"
)

// Role is the opaque role claim assigned by the external identity provider
type Role string

const (
	RoleAdvisor    Role = "ADVISOR"
	RoleAccounting Role = "ACCOUNTING"
	RoleAdmin      Role = "ADMIN"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdvisor, RoleAccounting, RoleAdmin:
		return true
	}
	return false
}

// ParseRole parses a role claim case-insensitively
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.NewDomainErrorf(shared.CodeForbidden, "Unknown role %q", s)
	}
	return r, nil
}

// Actor is the capability token handed to every state transition. It carries
// the caller's role and, when known, a display name for audit.
type Actor struct {
	role Role
	name string
}

// NewActor creates an actor for a known role
func NewActor(role Role, name string) (Actor, error) {
	if !role.IsValid() {
		return Actor{}, shared.NewDomainErrorf(shared.CodeForbidden, "Unknown role %q", role)
	}
	return Actor{role: role, name: strings.TrimSpace(name)}, nil
}

// MustActor creates an actor and panics on an unknown role
func MustActor(role Role, name string) Actor {
	a, err := NewActor(role, name)
	if err != nil {
		panic(err)
	}
	return a
}

// Role returns the actor's role
func (a Actor) Role() Role { return a.role }

// Name returns the actor's display name
func (a Actor) Name() string { return a.name }

// CanApprove reports whether the actor may validate, reject or dispatch reservations
func (a Actor) CanApprove() bool {
	return a.role == RoleAccounting || a.role == RoleAdmin
}

// audit returns the value stored in the *By columns
func (a Actor) audit() string {
	if a.name == "" {
		return string(a.role)
	}
	return string(a.role) + ":" + a.name
}
