// Package services holds the page flows of the course catalog: public
// reads, the instructor dashboard, course creation and management, and
// sign-in.
package services

import (
	"time"

	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/pkg/identity"
	"github.com/commandinlaw/academy/internal/pkg/media"
)

// Services bundles every service the controllers need.
type Services struct {
	Catalog   CatalogService
	Dashboard DashboardService
	Course    CourseService
	Auth      AuthService
}

// Options configures NewServices.
type Options struct {
	// SaveAllMode is config.SaveAllInvoke or config.SaveAllNoop.
	SaveAllMode string
	// Verifier validates access tokens locally; nil asks the provider.
	Verifier TokenVerifier
	Now      func() time.Time
}

// NewServices wires the services on top of the repositories and collaborators.
func NewServices(repos *repositories.Repositories, idp identity.Provider, uploader media.Uploader, opts Options) *Services {
	return &Services{
		Catalog:   NewCatalogService(repos.Courses),
		Dashboard: NewDashboardService(repos.Profiles, repos.Courses),
		Course:    NewCourseService(repos.Courses, repos.Lessons, uploader, opts.SaveAllMode),
		Auth:      NewAuthService(idp, opts.Verifier, opts.Now),
	}
}
