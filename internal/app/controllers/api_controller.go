package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commandinlaw/academy/internal/app/models/dto"
	"github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/middleware"
	"github.com/commandinlaw/academy/internal/pkg/media"
)

// APIController serves the read-only JSON API
type APIController struct {
	catalogService services.CatalogService
	linker         media.Linker
	backend        string
	mediaProvider  string
}

// NewAPIController creates a new APIController. backend and mediaProvider
// are reported by the health endpoint.
func NewAPIController(catalogService services.CatalogService, linker media.Linker, backend, mediaProvider string) *APIController {
	return &APIController{
		catalogService: catalogService,
		linker:         linker,
		backend:        backend,
		mediaProvider:  mediaProvider,
	}
}

func (c *APIController) link(transform string) dto.ImageLinker {
	return func(publicID string) string {
		return c.linker.URL(publicID, transform)
	}
}

// ListCourses returns the catalog
func (c *APIController) ListCourses(ctx *gin.Context) {
	courses, err := c.catalogService.ListCourses(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	link := c.link(media.TransformCatalogCard)
	resp := make([]dto.CourseCardResponse, 0, len(courses))
	for _, course := range courses {
		resp = append(resp, dto.FromCatalogCourse(course, link))
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{
		Success:   true,
		Data:      resp,
		Timestamp: time.Now(),
	})
}

// GetCourse returns one course with its objectives and lessons
func (c *APIController) GetCourse(ctx *gin.Context) {
	id := ctx.Param("id")
	detail, err := c.catalogService.GetCourseDetail(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Success:   true,
		Data:      dto.FromCourseDetail(id, detail, c.link(media.TransformDetail)),
		Timestamp: time.Now(),
	})
}

// Health reports the configured backends
func (c *APIController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:  "ok",
		Backend: c.backend,
		Media:   c.mediaProvider,
	}, ""))
}
