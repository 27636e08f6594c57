package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/commandinlaw/academy/internal/app/models/dto"
	"github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/middleware"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
	"github.com/commandinlaw/academy/internal/pkg/session"
	"github.com/commandinlaw/academy/internal/pkg/submitguard"
	"github.com/commandinlaw/academy/internal/web"
)

// Paths of the dashboard pages
const (
	DashboardPath    = "/dashboard"
	CreateCoursePath = "/dashboard/create-course"
)

// Alerts shown by the creation flow
const (
	alertLoginToCreate = "You must be logged in to create a course."
	alertCourseCreated = "Course created successfully!"
	alertCreateFailed  = "Error creating course: "
)

// DashboardController serves the instructor dashboard and course creation
type DashboardController struct {
	dashboardService services.DashboardService
	courseService    services.CourseService
	guard            submitguard.Guard
	pages            pageRenderer
}

// NewDashboardController creates a new DashboardController
func NewDashboardController(dashboardService services.DashboardService, courseService services.CourseService, guard submitguard.Guard, sessions *session.Manager) *DashboardController {
	return &DashboardController{
		dashboardService: dashboardService,
		courseService:    courseService,
		guard:            guard,
		pages:            pageRenderer{sessions: sessions},
	}
}

// Dashboard lists the signed-in instructor's courses
func (c *DashboardController) Dashboard(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	courses, err := c.dashboardService.ListOwnCourses(ctx.Request.Context(), userID)
	if err != nil {
		// A failed list reads as an empty one.
		logger.Error().Err(err).Str("instructorID", userID).Msg("Failed to list instructor courses")
		courses = nil
	}
	c.pages.render(ctx, http.StatusOK, web.PageDashboard, "Dashboard", DashboardView{Courses: courses})
}

// NewCourse renders the course creation form
func (c *DashboardController) NewCourse(ctx *gin.Context) {
	c.renderForm(ctx, http.StatusOK, dto.CreateCourseForm{})
}

// CreateCourse inserts a course owned by the signed-in user
func (c *DashboardController) CreateCourse(ctx *gin.Context) {
	var form dto.CreateCourseForm
	if err := ctx.ShouldBind(&form); err != nil || strings.TrimSpace(form.Title) == "" {
		c.renderForm(ctx, http.StatusOK, form)
		return
	}

	userID := middleware.CurrentUserID(ctx)
	if userID == "" {
		c.renderForm(ctx, http.StatusOK, form, alertLoginToCreate)
		return
	}

	ok, err := c.guard.Consume(ctx.Request.Context(), form.FormToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to consume form token")
		c.renderForm(ctx, http.StatusOK, form, alertCreateFailed+apperrors.Message(err))
		return
	}
	if !ok {
		// Already submitted.
		middleware.Redirect(ctx, DashboardPath)
		return
	}

	if _, err := c.courseService.CreateCourse(ctx.Request.Context(), userID, form.Title, form.Description); err != nil {
		logger.Warn().Err(err).Str("instructorID", userID).Msg("Course creation failed")
		c.renderForm(ctx, http.StatusOK, form, alertCreateFailed+apperrors.Message(err))
		return
	}
	c.pages.flashAndRedirect(ctx, DashboardPath, alertCourseCreated)
}

// renderForm shows the creation form populated from form with a fresh token.
func (c *DashboardController) renderForm(ctx *gin.Context, status int, form dto.CreateCourseForm, alerts ...string) {
	token, err := c.guard.Issue(ctx.Request.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to issue form token")
	}
	c.pages.render(ctx, status, web.PageCreateCourse, "Create a New Course", CreateCourseView{
		Title:       form.Title,
		Description: form.Description,
		FormToken:   token,
	}, alerts...)
}
