package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busops/ticket-counter/internal/auth"
	"github.com/busops/ticket-counter/internal/domain"
)

var secret = []byte("test-secret")

func TestParseToken_RoundTrip(t *testing.T) {
	want := domain.ActingUser{ID: 42, CompanyID: 7, Role: domain.RoleStaff}
	raw, err := auth.SignToken(secret, want, time.Hour)
	require.NoError(t, err)

	got, err := auth.ParseToken(secret, raw)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseToken_WrongSecret(t *testing.T) {
	raw, err := auth.SignToken(secret, domain.ActingUser{ID: 1, Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken([]byte("other"), raw)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	raw, err := auth.SignToken(secret, domain.ActingUser{ID: 1, Role: domain.RoleStaff}, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(secret, raw)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_RejectsNonNumericSubject(t *testing.T) {
	claims := auth.Claims{
		Role: "staff",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = auth.ParseToken(secret, raw)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := auth.Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.ParseToken(secret, raw)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestContext_RoundTrip(t *testing.T) {
	u := domain.ActingUser{ID: 3, CompanyID: 9, Role: domain.RoleManager}
	ctx := auth.WithActor(context.Background(), u, "raw-token")

	got, ok := auth.ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, u, got)
	assert.Equal(t, "raw-token", auth.TokenFromContext(ctx))

	_, ok = auth.ActorFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, auth.TokenFromContext(context.Background()))
}

func TestParseToken_NonAdminRequiresCompany(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleStaff, domain.RoleManager} {
		raw, err := auth.SignToken(secret, domain.ActingUser{ID: 5, Role: role}, time.Hour)
		require.NoError(t, err)

		_, err = auth.ParseToken(secret, raw)

		assert.ErrorIs(t, err, auth.ErrInvalidToken, "role %s", role)
	}

	raw, err := auth.SignToken(secret, domain.ActingUser{ID: 1, Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	got, err := auth.ParseToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CompanyID)
}
