package repositories

import (
	"context"

	"github.com/commandinlaw/academy/internal/app/models"
)

// CourseRepository reads and writes the courses collection.
type CourseRepository interface {
	// ListCatalog returns every course with its instructor profile joined
	// as a collection, in store order.
	ListCatalog(ctx context.Context) ([]*models.CatalogCourse, error)
	// GetDetail returns one course with an inner-joined profile and its
	// lessons in store order. A course without profile is not found.
	GetDetail(ctx context.Context, id string) (*models.CourseDetail, error)
	// ListByInstructor returns the instructor's courses, newest first.
	ListByInstructor(ctx context.Context, instructorID string) ([]*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	// Create inserts title, description and instructor_id only.
	Create(ctx context.Context, course *models.Course) (string, error)
	// UpdateMetadata overwrites title, description and objectives.
	UpdateMetadata(ctx context.Context, id, title string, description *string, objectives []string) error
	UpdateImage(ctx context.Context, id, imageID string) error
}

// LessonRepository reads and appends lessons.
type LessonRepository interface {
	// ListByCourse returns the course's lessons by creation time, oldest first.
	ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) (string, error)
}

// ProfileRepository reads profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// Repositories holds all the repository instances
type Repositories struct {
	Courses  CourseRepository
	Lessons  LessonRepository
	Profiles ProfileRepository
}
