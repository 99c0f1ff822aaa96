package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
)

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

type identityKey struct{}

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(models.Identity)
	return identity, ok
}

// RequireIdentity returns the caller's identity or an Unauthorized error.
func RequireIdentity(ctx context.Context) (models.Identity, error) {
	identity, ok := IdentityFrom(ctx)
	if !ok {
		return models.Identity{}, apperr.New(apperr.KindUnauthorized, "missing credentials")
	}
	return identity, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(h http.Header) string {
	value := h.Get("Authorization")
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return ""
}

// NewAuthInterceptor authenticates every unary call except the listed procedures.
func NewAuthInterceptor(auth Authenticator, public ...string) connect.UnaryInterceptorFunc {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if open[req.Spec().Procedure] {
				return next(ctx, req)
			}
			identity, err := auth.Authenticate(ctx, BearerToken(req.Header()))
			if err != nil {
				return nil, apperr.ToConnect(err)
			}
			return next(WithIdentity(ctx, identity), req)
		}
	}
}
