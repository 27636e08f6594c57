package pg

import (
	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/db"
)

// NewRepositories creates the PostgreSQL-backed repository set.
func NewRepositories(database *db.PostgresDB) *repositories.Repositories {
	return &repositories.Repositories{
		Courses:  NewCourseRepository(database),
		Lessons:  NewLessonRepository(database),
		Profiles: NewProfileRepository(database),
	}
}
