package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/haventeam/haven/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, &Claims{
		DisplayName: "Alice",
		Type:        "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	p, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "alice", p.ID)
	require.Equal(t, "Alice", p.DisplayName)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, "other-secret", &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestVerifyRefreshTokenRejected(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, &Claims{
		Type:             "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestVerifyMissingSubject(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, &Claims{Type: "access"})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}
