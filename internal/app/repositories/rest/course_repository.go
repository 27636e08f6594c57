package rest

import (
	"context"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
	"github.com/commandinlaw/academy/internal/pkg/postgrest"
)

const (
	coursesTable = "courses"

	catalogSelect = `
		id, title, description, image_url,
		profiles ( full_name )`

	// The profile is an inner join: a course whose instructor has no profile
	// is not returned. Lessons are a left join without ordering.
	detailSelect = `
		title, description, image_url, objectives,
		profiles!inner ( full_name ),
		lessons ( id, title )`

	dashboardSelect = "id, title, created_at"

	courseSelect = "id, title, description, image_url, objectives, instructor_id, created_at"
)

// CourseRepository reads and writes courses through PostgREST.
type CourseRepository struct {
	client *postgrest.Client
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(client *postgrest.Client) *CourseRepository {
	return &CourseRepository{client: client}
}

// ListCatalog returns every course with its instructor name.
func (r *CourseRepository) ListCatalog(ctx context.Context) ([]*models.CatalogCourse, error) {
	var courses []*models.CatalogCourse
	err := r.client.Select(ctx, tokenFrom(ctx), coursesTable, postgrest.Query{Select: catalogSelect}, &courses)
	if err != nil {
		return nil, translate(err, nil)
	}
	return courses, nil
}

// GetDetail returns one course with its profile and lessons.
func (r *CourseRepository) GetDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	var detail models.CourseDetail
	err := r.client.Select(ctx, tokenFrom(ctx), coursesTable, postgrest.Query{
		Select: detailSelect,
		Eq:     map[string]string{"id": id},
		Single: true,
	}, &detail)
	if err != nil {
		return nil, translate(err, apperrors.ErrCourseNotFound)
	}
	return &detail, nil
}

// ListByInstructor returns the instructor's courses, newest first.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]*models.Course, error) {
	var courses []*models.Course
	err := r.client.Select(ctx, tokenFrom(ctx), coursesTable, postgrest.Query{
		Select: dashboardSelect,
		Eq:     map[string]string{"instructor_id": instructorID},
		Order:  "created_at.desc",
	}, &courses)
	if err != nil {
		return nil, translate(err, nil)
	}
	for _, c := range courses {
		c.InstructorID = instructorID
	}
	return courses, nil
}

// GetByID returns the full course row.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := r.client.Select(ctx, tokenFrom(ctx), coursesTable, postgrest.Query{
		Select: courseSelect,
		Eq:     map[string]string{"id": id},
		Single: true,
	}, &course)
	if err != nil {
		return nil, translate(err, apperrors.ErrCourseNotFound)
	}
	return &course, nil
}

type courseInsert struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	InstructorID string  `json:"instructor_id"`
}

// Create inserts a course and returns its id.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (string, error) {
	var rows []idRow
	err := r.client.Insert(ctx, tokenFrom(ctx), coursesTable, courseInsert{
		Title:        course.Title,
		Description:  course.Description,
		InstructorID: course.InstructorID,
	}, &rows)
	if err != nil {
		return "", translate(err, nil)
	}
	if len(rows) == 0 {
		// Inserted but not readable back, e.g. a select policy hides it.
		logger.Warn().Str("instructorID", course.InstructorID).Msg("Course insert returned no representation")
		return "", nil
	}
	course.ID = rows[0].ID
	return course.ID, nil
}

type metadataPatch struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Objectives  []string `json:"objectives"`
}

// UpdateMetadata overwrites title, description and objectives.
func (r *CourseRepository) UpdateMetadata(ctx context.Context, id, title string, description *string, objectives []string) error {
	if objectives == nil {
		objectives = []string{}
	}
	return r.update(ctx, id, metadataPatch{Title: title, Description: description, Objectives: objectives})
}

// UpdateImage stores the media identifier of the course image.
func (r *CourseRepository) UpdateImage(ctx context.Context, id, imageID string) error {
	return r.update(ctx, id, map[string]string{"image_url": imageID})
}

// update reports a patch that matched no visible row as not found. Row level
// security makes a foreign course look the same as a missing one.
func (r *CourseRepository) update(ctx context.Context, id string, patch interface{}) error {
	var rows []idRow
	err := r.client.Update(ctx, tokenFrom(ctx), coursesTable, map[string]string{"id": id}, patch, &rows)
	if err != nil {
		return translate(err, apperrors.ErrCourseNotFound)
	}
	if len(rows) == 0 {
		logger.Warn().Str("courseID", id).Msg("Course update matched no rows")
		return apperrors.ErrCourseNotFound
	}
	return nil
}
