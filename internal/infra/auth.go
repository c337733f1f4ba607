// README: Token verification contract shared by the HTTP middleware and the websocket endpoint.
package infra

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UID    string
	Role   string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw bearer token and returns the caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

func roleFromClaims(claims map[string]interface{}) string {
	if r, ok := claims["role"].(string); ok && r != "" {
		return r
	}
	return "user"
}
