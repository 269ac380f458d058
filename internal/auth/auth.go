package auth

import (
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Staff roles. Everything except worker is elevated: elevated roles bypass
// assignment-ownership checks on order and task mutations.
const (
	RoleWorker     = "worker"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

var (
	// ErrUnauthenticated means the request carried no usable credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the actor's role or assignment does not permit the operation.
	ErrForbidden = errors.New("forbidden")
)

// Actor represents the authenticated caller from JWT.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// Elevated reports whether the actor may bypass worker assignment checks.
func (a Actor) Elevated() bool {
	switch a.Role {
	case RoleSupervisor, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Admin reports whether the actor may perform admin-only operations
// (refund updates, offer management).
func (a Actor) Admin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// ParseBearer extracts the token from an Authorization header value and
// validates it.
func ParseBearer(header, secret string) (*Actor, error) {
	if header == "" {
		return nil, ErrUnauthenticated
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid authorization header")
	}
	return parseJWT(strings.TrimSpace(parts[1]), secret)
}

// parseJWT validates and extracts claims from a JWT token.
func parseJWT(tokenStr string, secret string) (*Actor, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	type claims struct {
		Email string `json:"email"`
		Role  string `json:"role"`
		jwt.RegisteredClaims
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Subject == "" || c.Role == "" {
		return nil, errors.New("invalid claims")
	}
	return &Actor{ID: c.Subject, Email: c.Email, Role: strings.ToLower(c.Role)}, nil
}
