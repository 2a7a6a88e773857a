// Package auth establishes the calling principal for every request. Two
// verifier implementations exist: local HMAC JWT validation and remote token
// introspection. Handlers read the principal from the request context and
// never look at credentials themselves.
package auth

import (
	"context"

	"github.com/haventeam/haven/internal/model"
)

// Verifier turns a bearer token into the authenticated principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

type contextKey struct{}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom extracts the principal set by the middleware. The boolean is
// false on unauthenticated requests.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(model.Principal)
	return p, ok
}
