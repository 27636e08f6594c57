package services

import (
	"context"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/repositories"
)

// CatalogService serves the public pages
type CatalogService interface {
	ListCourses(ctx context.Context) ([]*models.CatalogCourse, error)
	GetCourseDetail(ctx context.Context, id string) (*models.CourseDetail, error)
}

type catalogServiceImpl struct {
	courseRepo repositories.CourseRepository
}

// NewCatalogService creates a new catalog service instance
func NewCatalogService(courseRepo repositories.CourseRepository) CatalogService {
	return &catalogServiceImpl{courseRepo: courseRepo}
}

// ListCourses returns every course in store order.
func (s *catalogServiceImpl) ListCourses(ctx context.Context) ([]*models.CatalogCourse, error) {
	return s.courseRepo.ListCatalog(ctx)
}

// GetCourseDetail returns one course with objectives defaulted to empty.
func (s *catalogServiceImpl) GetCourseDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	d, err := s.courseRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Objectives = d.ObjectiveList()
	if d.Lessons == nil {
		d.Lessons = []models.LessonSummary{}
	}
	return d, nil
}
