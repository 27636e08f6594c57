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

// LessonRepository handles lesson database operations
type LessonRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewLessonRepository creates a new LessonRepository
func NewLessonRepository(database *db.PostgresDB) *LessonRepository {
	return &LessonRepository{
		db: database,
		sb: newBuilder(),
	}
}

// ListByCourse returns the course's lessons, oldest first.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	sql, args, err := r.sb.Select("id::text", "title", "video_url", "course_id::text", "created_at").
		From("lessons").
		Where(squirrel.Eq{"course_id": courseID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list lessons SQL")
		return nil, fmt.Errorf("failed to build list lessons query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("courseID", courseID).Msg("Error querying lessons")
		return nil, translate(err, apperrors.ErrCourseNotFound)
	}
	defer rows.Close()

	lessons := []*models.Lesson{}
	for rows.Next() {
		l := &models.Lesson{}
		if err := rows.Scan(&l.ID, &l.Title, &l.VideoURL, &l.CourseID, &l.CreatedAt); err != nil {
			logger.Error().Err(err).Msg("Error scanning lesson row")
			return nil, fmt.Errorf("error scanning lesson row: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, apperrors.ErrCourseNotFound)
	}

	return lessons, nil
}

// Create appends a lesson to a course owned by the acting user.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) (string, error) {
	userID, err := actorID(ctx)
	if err != nil {
		return "", err
	}

	sql, args, err := r.sb.Select("1").
		From("courses").
		Where(squirrel.Eq{"id": lesson.CourseID, "instructor_id": userID}).
		Prefix("SELECT EXISTS(").
		Suffix(")").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build course ownership query: %w", err)
	}

	var owned bool
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&owned); err != nil {
		logger.Error().Err(err).Str("courseID", lesson.CourseID).Msg("Error checking course ownership")
		return "", translate(err, apperrors.ErrCourseNotFound)
	}
	if !owned {
		logger.Warn().Str("courseID", lesson.CourseID).Str("userID", userID).Msg("Lesson append on a course not owned by the user")
		return "", apperrors.ErrCourseNotFound
	}

	sql, args, err = r.sb.Insert("lessons").
		Columns("title", "video_url", "course_id").
		Values(lesson.Title, lesson.VideoURL, lesson.CourseID).
		Suffix("RETURNING id::text").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create lesson SQL")
		return "", fmt.Errorf("failed to build create lesson query: %w", err)
	}

	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&lesson.ID); err != nil {
		logger.Error().Err(err).Str("courseID", lesson.CourseID).Msg("Error creating lesson")
		return "", translate(err, apperrors.ErrCourseNotFound)
	}
	return lesson.ID, nil
}
