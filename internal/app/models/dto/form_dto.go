package dto

// Login form actions
const (
	LoginActionSignIn = "signin"
	LoginActionSignUp = "signup"
)

// LoginForm is posted by the login page. Both buttons share one form.
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Action   string `form:"action" binding:"required,oneof=signin signup"`
}

// CreateCourseForm is posted by the course creation page
type CreateCourseForm struct {
	Title       string `form:"title" binding:"required"`
	Description string `form:"description"`
	FormToken   string `form:"form_token"`
}

// CourseInfoForm carries the editable course fields of the management page.
// Every management action posts it so unsaved edits survive the round trip.
type CourseInfoForm struct {
	Title        string `form:"title"`
	Description  string `form:"description"`
	NewObjective string `form:"new_objective"`
}

// LessonForm is posted by the add lesson form together with a video file
type LessonForm struct {
	Title     string `form:"title" binding:"required"`
	FormToken string `form:"form_token"`
}

// ImageForm is posted by the course image upload form
type ImageForm struct {
	FormToken string `form:"form_token"`
}
