package repositories

import "context"

// Actor is the signed-in user on whose behalf the store is called. The
// hosted store enforces row level security with AccessToken; the Postgres
// store enforces ownership with UserID.
type Actor struct {
	UserID      string
	AccessToken string
}

type actorKey struct{}

// WithActor attaches actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor attached to ctx, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok && a.UserID != ""
}
