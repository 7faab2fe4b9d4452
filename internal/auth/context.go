// Package auth carries the authenticated user through request
// contexts. It sits below both middleware and handler so neither has
// to import the other to share the user.
package auth

import (
	"context"
	"net/http"

	"github.com/thorsby/docketwatch/internal/domain"
)

// userKey is unexported and zero-sized; no other package can collide
// with it.
type userKey struct{}

// SetUser returns a context carrying user. The session middleware
// calls this after validating a bearer token.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns the authenticated user, or nil when the request
// never passed authentication.
func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey{}).(*domain.User)
	return user
}

// GetUserFromRequest is GetUser on the request's context.
func GetUserFromRequest(r *http.Request) *domain.User {
	return GetUser(r.Context())
}
