package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/haventeam/haven/internal/model"
)

// IntrospectionVerifier validates opaque tokens against an RFC 7662 style
// introspection endpoint. Used when tokens are minted by an external identity
// provider rather than signed locally.
type IntrospectionVerifier struct {
	client *resty.Client
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active  bool   `json:"active"`
	Subject string `json:"sub"`
	Name    string `json:"name,omitempty"`
}

func NewIntrospectionVerifier(url string) *IntrospectionVerifier {
	c := resty.New().
		SetBaseURL(url).
		SetHeader("Content-Type", "application/json").
		SetTimeout(5 * time.Second)
	return &IntrospectionVerifier{client: c}
}

func (v *IntrospectionVerifier) Verify(ctx context.Context, token string) (*model.Principal, error) {
	var out introspectResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(&introspectRequest{Token: token}).
		SetResult(&out).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("token introspection: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("token introspection: status %d", resp.StatusCode())
	}
	if !out.Active || out.Subject == "" {
		return nil, fmt.Errorf("%w: token inactive", model.ErrUnauthorized)
	}
	return &model.Principal{ID: out.Subject, DisplayName: out.Name}, nil
}
