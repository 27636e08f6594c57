package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/config"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
	"github.com/commandinlaw/academy/internal/pkg/media"
)

// ManagePage is everything the management page renders.
type ManagePage struct {
	Course  *models.Course
	Lessons []*models.Lesson
}

// Upload is one file posted by a form.
type Upload struct {
	Filename string
	Content  io.Reader
}

// CourseService creates and manages courses
type CourseService interface {
	// CreateCourse inserts title, description and the instructor id only.
	CreateCourse(ctx context.Context, instructorID, title, description string) (string, error)
	// LoadManagePage reads the course and its lessons concurrently. Either
	// failure fails the whole load.
	LoadManagePage(ctx context.Context, courseID string) (*ManagePage, error)
	// UpdateDetails overwrites title, description and objectives.
	UpdateDetails(ctx context.Context, courseID string, draft models.CourseDraft) error
	// SaveAll runs UpdateDetails unless the service is configured as a no-op.
	// It reports whether anything was written.
	SaveAll(ctx context.Context, courseID string, draft models.CourseDraft) (bool, error)
	// UploadImage uploads an image and then links it to the course.
	UploadImage(ctx context.Context, courseID string, file Upload) (string, error)
	// AddLesson uploads a video and then inserts the lesson row.
	AddLesson(ctx context.Context, courseID, title string, video Upload) (*models.Lesson, error)
}

type courseServiceImpl struct {
	courseRepo  repositories.CourseRepository
	lessonRepo  repositories.LessonRepository
	uploader    media.Uploader
	saveAllMode string
}

// NewCourseService creates a new course service instance
func NewCourseService(courseRepo repositories.CourseRepository, lessonRepo repositories.LessonRepository, uploader media.Uploader, saveAllMode string) CourseService {
	if saveAllMode == "" {
		saveAllMode = config.SaveAllInvoke
	}
	return &courseServiceImpl{
		courseRepo:  courseRepo,
		lessonRepo:  lessonRepo,
		uploader:    uploader,
		saveAllMode: saveAllMode,
	}
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func (s *courseServiceImpl) CreateCourse(ctx context.Context, instructorID, title, description string) (string, error) {
	if instructorID == "" {
		return "", apperrors.ErrUnauthenticated
	}
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title cannot be empty", apperrors.ErrValidationFailed)
	}

	id, err := s.courseRepo.Create(ctx, &models.Course{
		Title:        title,
		Description:  optional(description),
		InstructorID: instructorID,
	})
	if err != nil {
		return "", err
	}
	logger.Info().Str("courseID", id).Str("instructorID", instructorID).Msg("Course created")
	return id, nil
}

func (s *courseServiceImpl) LoadManagePage(ctx context.Context, courseID string) (*ManagePage, error) {
	page := &ManagePage{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		course, err := s.courseRepo.GetByID(gctx, courseID)
		if err != nil {
			return err
		}
		page.Course = course
		return nil
	})
	g.Go(func() error {
		lessons, err := s.lessonRepo.ListByCourse(gctx, courseID)
		if err != nil {
			return err
		}
		page.Lessons = lessons
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if page.Lessons == nil {
		page.Lessons = []*models.Lesson{}
	}
	return page, nil
}

func (s *courseServiceImpl) UpdateDetails(ctx context.Context, courseID string, draft models.CourseDraft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", apperrors.ErrValidationFailed)
	}
	objectives := draft.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	return s.courseRepo.UpdateMetadata(ctx, courseID, draft.Title, optional(draft.Description), objectives)
}

func (s *courseServiceImpl) SaveAll(ctx context.Context, courseID string, draft models.CourseDraft) (bool, error) {
	if s.saveAllMode == config.SaveAllNoop {
		return false, nil
	}
	if err := s.UpdateDetails(ctx, courseID, draft); err != nil {
		return false, err
	}
	return true, nil
}

func (s *courseServiceImpl) UploadImage(ctx context.Context, courseID string, file Upload) (string, error) {
	if file.Content == nil {
		return "", fmt.Errorf("%w: image is required", apperrors.ErrValidationFailed)
	}
	publicID, err := s.uploader.Upload(ctx, media.KindImage, file.Filename, file.Content)
	if err != nil {
		return "", err
	}
	if err := s.courseRepo.UpdateImage(ctx, courseID, publicID); err != nil {
		return "", s.unlinked(ctx, media.KindImage, publicID, err)
	}
	return publicID, nil
}

func (s *courseServiceImpl) AddLesson(ctx context.Context, courseID, title string, video Upload) (*models.Lesson, error) {
	if strings.TrimSpace(title) == "" || video.Content == nil {
		return nil, fmt.Errorf("%w: title and video are required", apperrors.ErrValidationFailed)
	}
	publicID, err := s.uploader.Upload(ctx, media.KindVideo, video.Filename, video.Content)
	if err != nil {
		return nil, err
	}
	lesson := &models.Lesson{Title: title, VideoURL: &publicID, CourseID: courseID}
	id, err := s.lessonRepo.Create(ctx, lesson)
	if err != nil {
		return nil, s.unlinked(ctx, media.KindVideo, publicID, err)
	}
	lesson.ID = id
	return lesson, nil
}

// unlinked tries to remove content whose row write failed.
func (s *courseServiceImpl) unlinked(ctx context.Context, kind media.Kind, publicID string, cause error) error {
	out := &UploadedButUnlinkedError{Kind: kind, PublicID: publicID, Err: cause}
	err := s.uploader.Destroy(context.WithoutCancel(ctx), kind, publicID)
	switch {
	case err == nil:
		out.Cleaned = true
	case errors.Is(err, media.ErrDestroyUnsupported):
		logger.Warn().Str("publicID", publicID).Str("kind", string(kind)).Msg("Uploaded media left unlinked")
	default:
		logger.Error().Err(err).Str("publicID", publicID).Str("kind", string(kind)).Msg("Failed to remove unlinked media")
	}
	return out
}
