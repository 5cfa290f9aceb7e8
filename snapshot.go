package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known claim names this layer reads directly.
const (
	ClaimSubject    = "sub"
	ClaimEmail      = "email"
	ClaimDepartment = "Department"
	ClaimRole       = "role"
	ClaimRoles      = "roles"
)

// AuthSnapshot is the externally visible identity derived from the
// credential at a point in time. Anonymous snapshots carry no claims.
type AuthSnapshot struct {
	Authenticated bool       `json:"authenticated"`
	Claims        []Claim    `json:"claims,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	TakenAt       time.Time  `json:"taken_at"`
}

// FindClaim returns the first claim with the given name in source order.
func (s *AuthSnapshot) FindClaim(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, claim := range s.Claims {
		if claim.Name == name {
			return claim.Value, true
		}
	}
	return "", false
}

// UserID returns the subject claim.
func (s *AuthSnapshot) UserID() string {
	id, _ := s.FindClaim(ClaimSubject)
	return id
}

func (s *AuthSnapshot) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID())
}

// Email returns the email claim, which drives remote permission lookups.
func (s *AuthSnapshot) Email() string {
	email, _ := s.FindClaim(ClaimEmail)
	return email
}

// Department returns the Department claim.
func (s *AuthSnapshot) Department() string {
	department, _ := s.FindClaim(ClaimDepartment)
	return department
}

// Roles returns every role claim value in source order.
func (s *AuthSnapshot) Roles() []string {
	if s == nil {
		return nil
	}
	var roles []string
	for _, claim := range s.Claims {
		if claim.Name == ClaimRole || claim.Name == ClaimRoles {
			roles = append(roles, claim.Value)
		}
	}
	return roles
}

func (s AuthSnapshot) String() string {
	expires := "<nil>"
	if s.ExpiresAt != nil {
		expires = s.ExpiresAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"authenticated=%t sub=%s email=%s exp=%s claims=%d",
		s.Authenticated,
		s.UserID(),
		s.Email(),
		expires,
		len(s.Claims),
	)
}
