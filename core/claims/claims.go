// Package claims carries the authenticated viewer through a request. The
// value is read once at the handler edge and passed explicitly to the
// enrollment tracker and workflow.
package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

var ErrMissing = errors.New("claim value missing from context")

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}

// Viewer returns the session owner, or nil for an anonymous request.
func Viewer(ctx context.Context) *Claims {
	c, err := Get(ctx)
	if err != nil {
		return nil
	}
	return &c
}

func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

func IsAdmin(ctx context.Context) bool {
	return Viewer(ctx).IsAdmin()
}
