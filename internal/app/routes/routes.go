package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commandinlaw/academy/internal/app/controllers"
	"github.com/commandinlaw/academy/internal/middleware"
	"github.com/commandinlaw/academy/internal/web"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	pageController *controllers.PageController,
	authController *controllers.AuthController,
	dashboardController *controllers.DashboardController,
	manageController *controllers.ManageController,
	apiController *controllers.APIController,
	authMiddleware *middleware.AuthMiddleware,
	allowedOrigins []string,
) {
	router.StaticFS("/static", web.Static())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	// --- Read-only JSON API ---
	v1 := router.Group("/api/v1")
	v1.Use(middleware.CORS(allowedOrigins))
	{
		v1.GET("/health", apiController.Health)
		v1.GET("/courses", apiController.ListCourses)
		v1.GET("/courses/:id", apiController.GetCourse)
	}

	// --- Pages ---
	pages := router.Group("")
	pages.Use(authMiddleware.LoadSession())
	{
		pages.GET("/", pageController.Catalog)
		pages.GET("/course/:id", pageController.CourseDetail)

		pages.GET(middleware.LoginPath, authController.LoginPage)
		pages.POST(middleware.LoginPath, authController.Login)
		pages.POST("/logout", authController.Logout)

		// The creation form reports a missing session itself.
		pages.GET(controllers.CreateCoursePath, dashboardController.NewCourse)
		pages.POST(controllers.CreateCoursePath, dashboardController.CreateCourse)
	}

	// --- Instructor pages ---
	instructor := pages.Group("/dashboard")
	instructor.Use(authMiddleware.SessionRequired(), authMiddleware.AuthorRequired())
	{
		instructor.GET("", dashboardController.Dashboard)

		manage := instructor.Group("/manage/:id")
		manage.Use(manageController.LimitUploads())
		{
			manage.GET("", manageController.Manage)
			manage.POST("", manageController.UpdateCourse)
			manage.POST("/save", manageController.SaveAll)
			manage.POST("/objectives", manageController.AddObjective)
			manage.POST("/objectives/:index/remove", manageController.RemoveObjective)
			manage.POST("/image", manageController.UploadImage)
			manage.POST("/lessons", manageController.AddLesson)
		}
	}
}
