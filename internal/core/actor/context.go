// Package actor provides request-scoped actor identity.
// Authorization policy lives outside this core; the engine only records
// who requested or approved an operation.
package actor

import (
	"context"
)

// Actor identifies the person behind a request (salesman, hub operator,
// back-office user). The identity is opaque to the consistency engine.
type Actor struct {
	ID    string
	Name  string
	Role  string
	HubID string // home hub for field staff, empty for back office
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, a)
}

// Get returns Actor from context, or nil.
func Get(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetID returns the actor ID from context or empty string.
func GetID(ctx context.Context) string {
	if a := Get(ctx); a != nil {
		return a.ID
	}
	return ""
}
