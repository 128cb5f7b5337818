package auth

import (
	"context"

	"rollcall/internal/model"
)

type governorKey struct{}

// WithGovernor returns a context carrying the authenticated governor.
func WithGovernor(ctx context.Context, g model.GovernorView) context.Context {
	return context.WithValue(ctx, governorKey{}, g)
}

// GovernorFrom returns the governor attached by the Session Guard.
func GovernorFrom(ctx context.Context) (model.GovernorView, bool) {
	g, ok := ctx.Value(governorKey{}).(model.GovernorView)
	return g, ok
}
