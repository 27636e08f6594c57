// Package rest implements the repositories on top of the PostgREST endpoint
// of a hosted Supabase project. Row level security enforces ownership.
package rest

import (
	"context"
	"errors"

	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/postgrest"
)

// translate maps a client failure onto the application errors. notFound is
// returned for a missing row; everything else keeps the store's message.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	var perr *postgrest.Error
	if errors.As(err, &perr) {
		if perr.NotFound() && notFound != nil {
			return notFound
		}
		return apperrors.NewUpstreamError(perr.Error(), perr.Status)
	}
	return apperrors.NewUpstreamError(err.Error(), 0)
}

// tokenFrom returns the actor's access token, or "" for anonymous reads.
func tokenFrom(ctx context.Context) string {
	if actor, ok := repositories.ActorFrom(ctx); ok {
		return actor.AccessToken
	}
	return ""
}

type idRow struct {
	ID string `json:"id"`
}
