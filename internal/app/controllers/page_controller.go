package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
	"github.com/commandinlaw/academy/internal/pkg/media"
	"github.com/commandinlaw/academy/internal/pkg/session"
	"github.com/commandinlaw/academy/internal/web"
)

// PageController serves the public catalog and course detail pages
type PageController struct {
	catalogService services.CatalogService
	linker         media.Linker
	pages          pageRenderer
}

// NewPageController creates a new PageController
func NewPageController(catalogService services.CatalogService, linker media.Linker, sessions *session.Manager) *PageController {
	return &PageController{
		catalogService: catalogService,
		linker:         linker,
		pages:          pageRenderer{sessions: sessions},
	}
}

// imageURL returns the delivery URL of a stored image id, or "" when unset.
func imageURL(linker media.Linker, id *string, transform string) string {
	if id == nil || *id == "" {
		return ""
	}
	return linker.URL(*id, transform)
}

// Catalog lists every course
func (c *PageController) Catalog(ctx *gin.Context) {
	courses, err := c.catalogService.ListCourses(ctx.Request.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load catalog")
		c.pages.render(ctx, http.StatusBadGateway, web.PageCatalog, "Courses", CatalogView{LoadFailed: true})
		return
	}

	view := CatalogView{Courses: make([]CourseCard, 0, len(courses))}
	for _, course := range courses {
		view.Courses = append(view.Courses, CourseCard{
			ID:          course.ID,
			Title:       course.Title,
			Description: derefString(course.Description),
			ImageURL:    imageURL(c.linker, course.ImageURL, media.TransformCatalogCard),
			Instructor:  course.InstructorName(),
		})
	}
	c.pages.render(ctx, http.StatusOK, web.PageCatalog, "Courses", view)
}

// CourseDetail shows one course with its objectives and lessons
func (c *PageController) CourseDetail(ctx *gin.Context) {
	id := ctx.Param("id")
	detail, err := c.catalogService.GetCourseDetail(ctx.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCourseNotFound) {
			logger.Error().Err(err).Str("courseID", id).Msg("Failed to load course detail")
		}
		c.pages.render(ctx, http.StatusNotFound, web.PageDetail, "Course not found", DetailView{})
		return
	}

	c.pages.render(ctx, http.StatusOK, web.PageDetail, detail.Title, DetailView{
		Found:       true,
		Title:       detail.Title,
		Description: derefString(detail.Description),
		ImageURL:    imageURL(c.linker, detail.ImageURL, media.TransformDetail),
		Instructor:  detail.InstructorName(),
		Objectives:  detail.ObjectiveList(),
		Lessons:     detail.Lessons,
	})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

