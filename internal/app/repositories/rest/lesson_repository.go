package rest

import (
	"context"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/postgrest"
)

const (
	lessonsTable = "lessons"
	lessonSelect = "id, title, video_url, course_id, created_at"
)

// LessonRepository reads and appends lessons through PostgREST.
type LessonRepository struct {
	client *postgrest.Client
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(client *postgrest.Client) *LessonRepository {
	return &LessonRepository{client: client}
}

// ListByCourse returns the course's lessons, oldest first.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	lessons := []*models.Lesson{}
	err := r.client.Select(ctx, tokenFrom(ctx), lessonsTable, postgrest.Query{
		Select: lessonSelect,
		Eq:     map[string]string{"course_id": courseID},
		Order:  "created_at.asc",
	}, &lessons)
	if err != nil {
		return nil, translate(err, apperrors.ErrCourseNotFound)
	}
	return lessons, nil
}

type lessonInsert struct {
	Title    string  `json:"title"`
	VideoURL *string `json:"video_url"`
	CourseID string  `json:"course_id"`
}

// Create appends a lesson and returns its id.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) (string, error) {
	var rows []idRow
	err := r.client.Insert(ctx, tokenFrom(ctx), lessonsTable, lessonInsert{
		Title:    lesson.Title,
		VideoURL: lesson.VideoURL,
		CourseID: lesson.CourseID,
	}, &rows)
	if err != nil {
		return "", translate(err, nil)
	}
	if len(rows) > 0 {
		lesson.ID = rows[0].ID
	}
	return lesson.ID, nil
}
