package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/haventeam/haven/internal/model"
)

// Claims is the token payload. Only access tokens are accepted; refresh
// tokens carry type "refresh" and must not reach the API.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*model.Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.WithStack(model.ErrUnauthorized)
	}
	if claims.Type == "refresh" {
		return nil, fmt.Errorf("%w: refresh token used as access token", model.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", model.ErrUnauthorized)
	}
	return &model.Principal{ID: claims.Subject, DisplayName: claims.DisplayName}, nil
}
