// Package pg implements the repositories on a self-hosted PostgreSQL
// database. Ownership is enforced with predicates on the acting user.
package pg

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/dberrors"
)

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// translate maps a database failure onto the application errors. Missing
// rows, malformed ids and dangling references all become notFound.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && (errors.Is(err, pgx.ErrNoRows) || dberrors.IsInvalidInput(err) || dberrors.IsForeignKeyViolation(err)) {
		return notFound
	}
	return apperrors.NewUpstreamError(dberrors.Message(err), 0)
}

// actorID returns the acting user or ErrUnauthenticated.
func actorID(ctx context.Context) (string, error) {
	actor, ok := repositories.ActorFrom(ctx)
	if !ok {
		return "", apperrors.ErrUnauthenticated
	}
	return actor.UserID, nil
}
