// Package requestid carries the per-request correlation id through a
// context.Context, so layers below the HTTP handlers can log and journal it
// without importing the HTTP packages.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header the id is read from and echoed in.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh random id.
func New() string {
	return uuid.NewString()
}

// With returns a copy of ctx carrying id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the id stored in ctx, or "".
func From(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}
