package rest

import (
	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/pkg/postgrest"
)

// NewRepositories creates the PostgREST-backed repository set.
func NewRepositories(client *postgrest.Client) *repositories.Repositories {
	return &repositories.Repositories{
		Courses:  NewCourseRepository(client),
		Lessons:  NewLessonRepository(client),
		Profiles: NewProfileRepository(client),
	}
}
