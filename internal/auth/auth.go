// Package auth turns the bearer token issued by the ticketing backend into the
// ActingUser the booking workflow runs as, and carries both through a request
// context. Tokens are verified here but never issued for real users; login
// and refresh belong to the backend.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/busops/ticket-counter/internal/domain"
)

// ErrInvalidToken is returned for a missing, malformed, expired or wrongly
// signed token.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set of a backend staff token.
// The subject is the staff member's numeric id.
type Claims struct {
	CompanyID int64  `json:"company_id,omitempty"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and returns the acting user it names.
func ParseToken(secret []byte, raw string) (domain.ActingUser, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.ActingUser{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.ActingUser{}, fmt.Errorf("%w: subject %q is not a staff id", ErrInvalidToken, claims.Subject)
	}
	if claims.Role == "" {
		return domain.ActingUser{}, fmt.Errorf("%w: role claim is required", ErrInvalidToken)
	}

	u := domain.ActingUser{ID: id, CompanyID: claims.CompanyID, Role: domain.Role(claims.Role)}
	if (u.Role == domain.RoleStaff || u.Role == domain.RoleManager) && u.CompanyID <= 0 {
		return domain.ActingUser{}, fmt.Errorf("%w: role %q requires a company_id claim", ErrInvalidToken, u.Role)
	}
	return u, nil
}

// SignToken issues an HS256 token for u that expires after ttl.
// Used by tests and local tooling to mint backend-compatible tokens.
func SignToken(secret []byte, u domain.ActingUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		CompanyID: u.CompanyID,
		Role:      string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

type ctxKey struct{}

type principal struct {
	user  domain.ActingUser
	token string
}

// WithActor returns a copy of ctx carrying the acting user and the raw token
// it was read from. The token is forwarded on upstream calls.
func WithActor(ctx context.Context, u domain.ActingUser, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, principal{user: u, token: token})
}

// ActorFromContext returns the acting user stored by WithActor.
func ActorFromContext(ctx context.Context) (domain.ActingUser, bool) {
	p, ok := ctx.Value(ctxKey{}).(principal)
	return p.user, ok
}

// TokenFromContext returns the raw bearer token stored by WithActor, or "".
func TokenFromContext(ctx context.Context) string {
	p, _ := ctx.Value(ctxKey{}).(principal)
	return p.token
}
