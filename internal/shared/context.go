package shared

import "context"

// Role values forwarded by the authentication gateway.
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
)

// Actor identifies the user behind a request.
type Actor struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the actor may lock or reopen periods.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is returned when absent.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
