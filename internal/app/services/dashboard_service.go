package services

import (
	"context"
	"errors"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// DashboardService serves the instructor dashboard
type DashboardService interface {
	// CheckAccess returns ErrPermissionDenied unless the user's profile
	// carries an author role.
	CheckAccess(ctx context.Context, userID string) (*models.Profile, error)
	// ListOwnCourses returns the user's courses, newest first.
	ListOwnCourses(ctx context.Context, userID string) ([]*models.Course, error)
}

type dashboardServiceImpl struct {
	profileRepo repositories.ProfileRepository
	courseRepo  repositories.CourseRepository
}

// NewDashboardService creates a new dashboard service instance
func NewDashboardService(profileRepo repositories.ProfileRepository, courseRepo repositories.CourseRepository) DashboardService {
	return &dashboardServiceImpl{
		profileRepo: profileRepo,
		courseRepo:  courseRepo,
	}
}

func (s *dashboardServiceImpl) CheckAccess(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrProfileNotFound) {
			return nil, apperrors.ErrPermissionDenied
		}
		return nil, err
	}
	if !models.CanAuthor(profile.Role) {
		logger.Debug().Str("userID", userID).Str("role", profile.Role).Msg("Dashboard access denied")
		return nil, apperrors.ErrPermissionDenied
	}
	return profile, nil
}

func (s *dashboardServiceImpl) ListOwnCourses(ctx context.Context, userID string) ([]*models.Course, error) {
	courses, err := s.courseRepo.ListByInstructor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	return courses, nil
}
