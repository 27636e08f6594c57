package pg

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/db"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// ProfileRepository reads profiles
type ProfileRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(database *db.PostgresDB) *ProfileRepository {
	return &ProfileRepository{
		db: database,
		sb: newBuilder(),
	}
}

// GetByID returns the profile of a user.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	sql, args, err := r.sb.Select("id::text", "full_name", "role").
		From("profiles").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get profile query: %w", err)
	}

	p := &models.Profile{}
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.FullName, &p.Role); err != nil {
		logger.Warn().Err(err).Str("userID", id).Msg("Profile lookup failed")
		return nil, translate(err, apperrors.ErrProfileNotFound)
	}
	return p, nil
}
