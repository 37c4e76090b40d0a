// Package identity reads the caller identity stamped by the upstream OAuth
// proxy. The core never authenticates anyone itself.
package identity

import (
	"context"
	"net/http"
	"strings"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

type Actor struct {
	ID   string
	Name string
	Role Role
}

// Guest is used when no identity headers are present.
var Guest = Actor{Role: RoleCustomer}

func (a Actor) IsStaff() bool {
	return a.Role == RoleOperator || a.Role == RoleAdmin
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(ctxKey{}).(Actor); ok {
		return a
	}
	return Guest
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := Actor{
			ID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Name: strings.TrimSpace(r.Header.Get(HeaderUserName)),
			Role: parseRole(r.Header.Get(HeaderUserRole)),
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func parseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOperator:
		return RoleOperator
	case RoleAdmin:
		return RoleAdmin
	}
	return RoleCustomer
}
