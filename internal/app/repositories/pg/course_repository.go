package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/db"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// CourseRepository handles course database operations
type CourseRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(database *db.PostgresDB) *CourseRepository {
	return &CourseRepository{
		db: database,
		sb: newBuilder(),
	}
}

// ListCatalog returns every course with its instructor name. The profile is
// left joined and reported as a collection of at most one entry.
func (r *CourseRepository) ListCatalog(ctx context.Context) ([]*models.CatalogCourse, error) {
	sql, args, err := r.sb.Select("c.id::text", "c.title", "c.description", "c.image_url", "p.id IS NOT NULL", "p.full_name").
		From("courses c").
		LeftJoin("profiles p ON p.id = c.instructor_id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building catalog SQL")
		return nil, fmt.Errorf("failed to build catalog query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing catalog query")
		return nil, translate(err, nil)
	}
	defer rows.Close()

	courses := []*models.CatalogCourse{}
	for rows.Next() {
		var (
			c          models.CatalogCourse
			hasProfile bool
			fullName   *string
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &hasProfile, &fullName); err != nil {
			logger.Error().Err(err).Msg("Error scanning catalog row")
			return nil, fmt.Errorf("error scanning catalog row: %w", err)
		}
		c.Profiles = []models.ProfileName{}
		if hasProfile {
			c.Profiles = append(c.Profiles, models.ProfileName{FullName: fullName})
		}
		courses = append(courses, &c)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating catalog rows")
		return nil, translate(err, nil)
	}

	return courses, nil
}

// GetDetail returns one course with its instructor name and lessons. A
// course whose instructor has no profile is not found.
func (r *CourseRepository) GetDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	sql, args, err := r.sb.Select("c.title", "c.description", "c.image_url", "c.objectives", "p.full_name").
		From("courses c").
		Join("profiles p ON p.id = c.instructor_id").
		Where(squirrel.Eq{"c.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building course detail SQL")
		return nil, fmt.Errorf("failed to build course detail query: %w", err)
	}

	var (
		d        models.CourseDetail
		fullName *string
	)
	err = r.db.Pool.QueryRow(ctx, sql, args...).Scan(&d.Title, &d.Description, &d.ImageURL, &d.Objectives, &fullName)
	if err != nil {
		logger.Warn().Err(err).Str("courseID", id).Msg("Course detail lookup failed")
		return nil, translate(err, apperrors.ErrCourseNotFound)
	}
	d.Profiles = &models.ProfileName{FullName: fullName}

	sql, args, err = r.sb.Select("id::text", "title").
		From("lessons").
		Where(squirrel.Eq{"course_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build detail lessons query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("courseID", id).Msg("Error querying detail lessons")
		return nil, translate(err, nil)
	}
	defer rows.Close()

	d.Lessons = []models.LessonSummary{}
	for rows.Next() {
		var l models.LessonSummary
		if err := rows.Scan(&l.ID, &l.Title); err != nil {
			return nil, fmt.Errorf("error scanning lesson row: %w", err)
		}
		d.Lessons = append(d.Lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, nil)
	}

	return &d, nil
}

// ListByInstructor returns the instructor's courses, newest first.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]*models.Course, error) {
	sql, args, err := r.courseSelect().
		Where(squirrel.Eq{"instructor_id": instructorID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building instructor courses SQL")
		return nil, fmt.Errorf("failed to build instructor courses query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("instructorID", instructorID).Msg("Error querying instructor courses")
		return nil, translate(err, nil)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c := &models.Course{}
		if err := scanCourse(rows, c); err != nil {
			logger.Error().Err(err).Msg("Error scanning course row")
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, nil)
	}

	return courses, nil
}

// GetByID returns the full course row.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	sql, args, err := r.courseSelect().
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get course SQL")
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c := &models.Course{}
	if err := scanCourse(r.db.Pool.QueryRow(ctx, sql, args...), c); err != nil {
		logger.Warn().Err(err).Str("courseID", id).Msg("Course lookup failed")
		return nil, translate(err, apperrors.ErrCourseNotFound)
	}
	return c, nil
}

// Create inserts a course owned by the acting user.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (string, error) {
	userID, err := actorID(ctx)
	if err != nil {
		return "", err
	}
	if course.InstructorID != userID {
		return "", apperrors.NewForbiddenError(`new row violates row-level security policy for table "courses"`)
	}

	sql, args, err := r.sb.Insert("courses").
		Columns("title", "description", "instructor_id").
		Values(course.Title, course.Description, course.InstructorID).
		Suffix("RETURNING id::text").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create course SQL")
		return "", fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&course.ID); err != nil {
		logger.Error().Err(err).Str("instructorID", course.InstructorID).Msg("Error creating course")
		return "", translate(err, nil)
	}
	return course.ID, nil
}

// UpdateMetadata overwrites title, description and objectives of a course
// owned by the acting user.
func (r *CourseRepository) UpdateMetadata(ctx context.Context, id, title string, description *string, objectives []string) error {
	if objectives == nil {
		objectives = []string{}
	}
	return r.update(ctx, id, map[string]interface{}{
		"title":       title,
		"description": description,
		"objectives":  objectives,
	})
}

// UpdateImage stores the media identifier of the course image.
func (r *CourseRepository) UpdateImage(ctx context.Context, id, imageID string) error {
	return r.update(ctx, id, map[string]interface{}{"image_url": imageID})
}

func (r *CourseRepository) update(ctx context.Context, id string, set map[string]interface{}) error {
	userID, err := actorID(ctx)
	if err != nil {
		return err
	}

	sql, args, err := r.sb.Update("courses").
		SetMap(set).
		Where(squirrel.Eq{"id": id, "instructor_id": userID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update course SQL")
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("courseID", id).Msg("Error updating course")
		return translate(err, apperrors.ErrCourseNotFound)
	}
	if tag.RowsAffected() == 0 {
		logger.Warn().Str("courseID", id).Str("userID", userID).Msg("Course update matched no owned rows")
		return apperrors.ErrCourseNotFound
	}
	return nil
}

func (r *CourseRepository) courseSelect() squirrel.SelectBuilder {
	return r.sb.Select(courseColumns...).From("courses")
}

var courseColumns = strings.Fields("id::text title description image_url objectives instructor_id::text created_at")

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCourse(row rowScanner, c *models.Course) error {
	return row.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &c.Objectives, &c.InstructorID, &c.CreatedAt)
}
