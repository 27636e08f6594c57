package rest

import (
	"context"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/postgrest"
)

// ProfileRepository reads profiles through PostgREST.
type ProfileRepository struct {
	client *postgrest.Client
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(client *postgrest.Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

// GetByID returns the profile of a user.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.client.Select(ctx, tokenFrom(ctx), "profiles", postgrest.Query{
		Select: "id, full_name, role",
		Eq:     map[string]string{"id": id},
		Single: true,
	}, &profile)
	if err != nil {
		return nil, translate(err, apperrors.ErrProfileNotFound)
	}
	return &profile, nil
}
