package client

import (
	"log/slog"
	"net/http"
)

// AuthUser is the identity attached to a request after the gate verifies its
// bearer token.
type AuthUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", u.Email),
		slog.String("name", u.Name),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "simple-auth context value " + k.name
}

var (
	AuthUserKey = &contextKey{"AuthUser"}
)

// GetAuthUser returns the authenticated user attached to the request, if any
func GetAuthUser(r *http.Request) (*AuthUser, bool) {
	u, ok := r.Context().Value(AuthUserKey).(*AuthUser)
	return u, ok
}
