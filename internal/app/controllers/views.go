// Package controllers handles HTTP request handling
package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/middleware"
	"github.com/commandinlaw/academy/internal/pkg/session"
)

// Page is the data every template receives. Data is the page's own view.
type Page struct {
	Title    string
	SignedIn bool
	// Minimal swaps the site header for a back link.
	Minimal bool
	Alerts  []string
	Data    interface{}
}

// CatalogView backs the catalog page
type CatalogView struct {
	Courses    []CourseCard
	LoadFailed bool
}

// CourseCard is one catalog entry ready for display
type CourseCard struct {
	ID          string
	Title       string
	Description string
	ImageURL    string
	Instructor  string
}

// DetailView backs the course detail page
type DetailView struct {
	Found       bool
	Title       string
	Description string
	ImageURL    string
	Instructor  string
	Objectives  []string
	Lessons     []models.LessonSummary
}

// LoginView backs the login page
type LoginView struct {
	Email string
}

// DashboardView backs the instructor dashboard
type DashboardView struct {
	Courses []*models.Course
}

// CreateCourseView backs the course creation form
type CreateCourseView struct {
	Title       string
	Description string
	FormToken   string
}

// ManageView backs the course management page
type ManageView struct {
	CourseID    string
	LoadFailed  bool
	Title       string
	Description string
	ImageURL    string
	Objectives  []string
	Lessons     []*models.Lesson
	LessonTitle string
	ImageToken  string
	LessonToken string
	// Unsaved is set while objective edits wait for an explicit update.
	Unsaved bool
}

// pageRenderer renders pages with the layout fields filled from the session.
type pageRenderer struct {
	sessions *session.Manager
}

func (p pageRenderer) page(ctx *gin.Context, title string, data interface{}, alerts []string) Page {
	queued := p.sessions.Flashes(ctx.Writer, ctx.Request)
	return Page{
		Title:    title,
		SignedIn: middleware.CurrentUserID(ctx) != "",
		Alerts:   append(queued, alerts...),
		Data:     data,
	}
}

// render writes a page. alerts are shown after any queued flash alerts.
func (p pageRenderer) render(ctx *gin.Context, status int, name, title string, data interface{}, alerts ...string) {
	ctx.HTML(status, name, p.page(ctx, title, data, alerts))
}

// renderMinimal writes a page without the site header.
func (p pageRenderer) renderMinimal(ctx *gin.Context, status int, name, title string, data interface{}, alerts ...string) {
	page := p.page(ctx, title, data, alerts)
	page.Minimal = true
	ctx.HTML(status, name, page)
}

// flashAndRedirect queues an alert for the next page and redirects to it.
func (p pageRenderer) flashAndRedirect(ctx *gin.Context, target string, alerts ...string) {
	for _, alert := range alerts {
		if alert != "" {
			p.sessions.AddFlash(ctx.Writer, ctx.Request, alert)
		}
	}
	middleware.Redirect(ctx, target)
}
