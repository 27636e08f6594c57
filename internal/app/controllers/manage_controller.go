package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/models/dto"
	"github.com/commandinlaw/academy/internal/app/services"
	"github.com/commandinlaw/academy/internal/middleware"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/logger"
	"github.com/commandinlaw/academy/internal/pkg/media"
	"github.com/commandinlaw/academy/internal/pkg/session"
	"github.com/commandinlaw/academy/internal/pkg/submitguard"
	"github.com/commandinlaw/academy/internal/web"
)

// Alerts shown by the management flow
const (
	alertCourseUpdated = "Course updated successfully!"
	alertUpdateFailed  = "Error updating course: "
	alertDraftFailed   = "Could not keep your unsaved changes: "
	alertImageUpdated  = "Course image updated successfully!"
	alertImageFailed   = "Failed to upload image: "
	alertLessonAdded   = "Lesson added successfully!"
	alertLessonFailed  = "Failed to add lesson: "
)

// ManageController serves the course management page and its actions
type ManageController struct {
	courseService services.CourseService
	linker        media.Linker
	guard         submitguard.Guard
	sessions      *session.Manager
	pages         pageRenderer
	maxUpload     int64
}

// NewManageController creates a new ManageController. maxUploadBytes caps
// the request body of the upload actions.
func NewManageController(courseService services.CourseService, linker media.Linker, guard submitguard.Guard, sessions *session.Manager, maxUploadBytes int64) *ManageController {
	return &ManageController{
		courseService: courseService,
		linker:        linker,
		guard:         guard,
		sessions:      sessions,
		pages:         pageRenderer{sessions: sessions},
		maxUpload:     maxUploadBytes,
	}
}

// ManagePath returns the management page of a course.
func ManagePath(courseID string) string {
	return "/dashboard/manage/" + courseID
}

// LimitUploads caps request bodies of the routes it guards.
func (c *ManageController) LimitUploads() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c.maxUpload > 0 {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUpload)
		}
		ctx.Next()
	}
}

// Manage renders the management page
func (c *ManageController) Manage(ctx *gin.Context) {
	c.renderManage(ctx, ctx.Param("id"), "")
}

// renderManage loads course and lessons and renders the page, preferring
// unsaved edits from the session over stored values.
func (c *ManageController) renderManage(ctx *gin.Context, courseID, lessonTitle string, alerts ...string) {
	page, err := c.courseService.LoadManagePage(ctx.Request.Context(), courseID)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, apperrors.ErrCourseNotFound) {
			status = http.StatusNotFound
		} else {
			logger.Error().Err(err).Str("courseID", courseID).Msg("Failed to load course for management")
		}
		c.pages.render(ctx, status, web.PageManage, "Manage Course", ManageView{CourseID: courseID, LoadFailed: true}, alerts...)
		return
	}

	view := ManageView{
		CourseID:    courseID,
		Title:       page.Course.Title,
		Description: derefString(page.Course.Description),
		ImageURL:    imageURL(c.linker, page.Course.ImageURL, media.TransformManagePreview),
		Objectives:  page.Course.Objectives,
		Lessons:     page.Lessons,
		LessonTitle: lessonTitle,
	}
	if draft, ok := c.sessions.Draft(ctx.Request, courseID); ok {
		view.Title = draft.Title
		view.Description = draft.Description
		view.Objectives = draft.Objectives
		view.Unsaved = true
	}
	if view.ImageToken, err = c.guard.Issue(ctx.Request.Context()); err != nil {
		logger.Error().Err(err).Msg("Failed to issue form token")
	}
	if view.LessonToken, err = c.guard.Issue(ctx.Request.Context()); err != nil {
		logger.Error().Err(err).Msg("Failed to issue form token")
	}
	c.pages.render(ctx, http.StatusOK, web.PageManage, "Manage Course", view, alerts...)
}

// workingCopy returns the unsaved draft of a course, or its stored values
// when there is none. fromDraft is true for the former.
func (c *ManageController) workingCopy(ctx *gin.Context, courseID string) (draft models.CourseDraft, fromDraft bool, err error) {
	if d, ok := c.sessions.Draft(ctx.Request, courseID); ok {
		return d, true, nil
	}
	page, err := c.courseService.LoadManagePage(ctx.Request.Context(), courseID)
	if err != nil {
		return models.CourseDraft{}, false, err
	}
	return models.CourseDraft{
		Title:       page.Course.Title,
		Description: derefString(page.Course.Description),
		Objectives:  page.Course.Objectives,
	}, false, nil
}

// draft returns the working copy with the posted title and description
// applied. A form without a title carries no info edits.
func (c *ManageController) draft(ctx *gin.Context, courseID string, form dto.CourseInfoForm) (models.CourseDraft, error) {
	draft, _, err := c.workingCopy(ctx, courseID)
	if err != nil {
		return models.CourseDraft{}, err
	}
	if form.Title != "" {
		draft.Title = form.Title
		draft.Description = form.Description
	}
	return draft, nil
}

// editDraft applies edit to the working copy and keeps it in the session.
func (c *ManageController) editDraft(ctx *gin.Context, edit func(models.ObjectiveList) models.ObjectiveList) {
	courseID := ctx.Param("id")
	var form dto.CourseInfoForm
	_ = ctx.ShouldBind(&form)

	draft, err := c.draft(ctx, courseID, form)
	if err != nil {
		logger.Error().Err(err).Str("courseID", courseID).Msg("Failed to load course for editing")
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertUpdateFailed+apperrors.Message(err))
		return
	}
	draft.Objectives = edit(models.ObjectiveList(draft.Objectives))
	if err := c.sessions.SetDraft(ctx.Writer, ctx.Request, courseID, draft); err != nil {
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertDraftFailed+err.Error())
		return
	}
	middleware.Redirect(ctx, ManagePath(courseID))
}

// AddObjective appends the posted objective to the unsaved list
func (c *ManageController) AddObjective(ctx *gin.Context) {
	objective := ctx.PostForm("new_objective")
	c.editDraft(ctx, func(l models.ObjectiveList) models.ObjectiveList {
		return l.Add(objective)
	})
}

// RemoveObjective drops one objective from the unsaved list
func (c *ManageController) RemoveObjective(ctx *gin.Context) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		index = -1
	}
	c.editDraft(ctx, func(l models.ObjectiveList) models.ObjectiveList {
		return l.Remove(index)
	})
}

// UpdateCourse overwrites title, description and objectives
func (c *ManageController) UpdateCourse(ctx *gin.Context) {
	c.save(ctx, func(courseID string, draft models.CourseDraft) (bool, error) {
		return true, c.courseService.UpdateDetails(ctx.Request.Context(), courseID, draft)
	})
}

// SaveAll handles the "Save All Changes" button
func (c *ManageController) SaveAll(ctx *gin.Context) {
	c.save(ctx, func(courseID string, draft models.CourseDraft) (bool, error) {
		return c.courseService.SaveAll(ctx.Request.Context(), courseID, draft)
	})
}

func (c *ManageController) save(ctx *gin.Context, write func(courseID string, draft models.CourseDraft) (bool, error)) {
	courseID := ctx.Param("id")
	var form dto.CourseInfoForm
	if err := ctx.ShouldBind(&form); err != nil || strings.TrimSpace(form.Title) == "" {
		middleware.Redirect(ctx, ManagePath(courseID))
		return
	}

	draft, err := c.draft(ctx, courseID, form)
	if err != nil {
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertUpdateFailed+apperrors.Message(err))
		return
	}

	written, err := write(courseID, draft)
	if err != nil {
		logger.Warn().Err(err).Str("courseID", courseID).Msg("Course update failed")
		alerts := []string{alertUpdateFailed + apperrors.Message(err)}
		if err := c.sessions.SetDraft(ctx.Writer, ctx.Request, courseID, draft); err != nil {
			alerts = append(alerts, alertDraftFailed+err.Error())
		}
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alerts...)
		return
	}
	if !written {
		if err := c.sessions.SetDraft(ctx.Writer, ctx.Request, courseID, draft); err != nil {
			c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertDraftFailed+err.Error())
			return
		}
		middleware.Redirect(ctx, ManagePath(courseID))
		return
	}

	if err := c.sessions.ClearDraft(ctx.Request, courseID); err != nil {
		logger.Warn().Err(err).Str("courseID", courseID).Msg("Failed to drop saved draft")
	}
	c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertCourseUpdated)
}

// UploadImage replaces the course image
func (c *ManageController) UploadImage(ctx *gin.Context) {
	courseID := ctx.Param("id")
	var form dto.ImageForm
	_ = ctx.ShouldBind(&form)
	c.keepInfoEdits(ctx, courseID)

	file, err := ctx.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			middleware.Redirect(ctx, ManagePath(courseID))
			return
		}
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertImageFailed+err.Error())
		return
	}
	live, err := c.guard.Consume(ctx.Request.Context(), form.FormToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to consume form token")
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertImageFailed+err.Error())
		return
	}
	if !live {
		middleware.Redirect(ctx, ManagePath(courseID))
		return
	}

	upload, closeFn, err := openUpload(file)
	if err != nil {
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertImageFailed+err.Error())
		return
	}
	defer closeFn()

	if _, err := c.courseService.UploadImage(ctx.Request.Context(), courseID, upload); err != nil {
		logUnlinked(err, courseID)
		c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertImageFailed+apperrors.Message(err))
		return
	}
	c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertImageUpdated)
}

// keepInfoEdits stores posted title and description edits so that an image
// upload does not discard them.
func (c *ManageController) keepInfoEdits(ctx *gin.Context, courseID string) {
	var form dto.CourseInfoForm
	if err := ctx.ShouldBind(&form); err != nil || form.Title == "" {
		return
	}
	draft, fromDraft, err := c.workingCopy(ctx, courseID)
	if err != nil {
		return
	}
	if !fromDraft && draft.Title == form.Title && draft.Description == form.Description {
		return
	}
	draft.Title = form.Title
	draft.Description = form.Description
	if err := c.sessions.SetDraft(ctx.Writer, ctx.Request, courseID, draft); err != nil {
		logger.Warn().Err(err).Str("courseID", courseID).Msg("Failed to keep info edits before image upload")
	}
}

// AddLesson uploads a video and appends a lesson
func (c *ManageController) AddLesson(ctx *gin.Context) {
	courseID := ctx.Param("id")
	var form dto.LessonForm
	if err := ctx.ShouldBind(&form); err != nil || strings.TrimSpace(form.Title) == "" {
		middleware.Redirect(ctx, ManagePath(courseID))
		return
	}
	file, err := ctx.FormFile("video")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			c.renderManage(ctx, courseID, form.Title)
			return
		}
		c.renderManage(ctx, courseID, form.Title, alertLessonFailed+err.Error())
		return
	}
	live, err := c.guard.Consume(ctx.Request.Context(), form.FormToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to consume form token")
		c.renderManage(ctx, courseID, form.Title, alertLessonFailed+err.Error())
		return
	}
	if !live {
		middleware.Redirect(ctx, ManagePath(courseID))
		return
	}

	upload, closeFn, err := openUpload(file)
	if err != nil {
		c.renderManage(ctx, courseID, form.Title, alertLessonFailed+err.Error())
		return
	}
	defer closeFn()

	lesson, err := c.courseService.AddLesson(ctx.Request.Context(), courseID, form.Title, upload)
	if err != nil {
		logUnlinked(err, courseID)
		c.renderManage(ctx, courseID, form.Title, alertLessonFailed+apperrors.Message(err))
		return
	}
	logger.Info().Str("courseID", courseID).Str("lessonID", lesson.ID).Msg("Lesson added")
	c.pages.flashAndRedirect(ctx, ManagePath(courseID), alertLessonAdded)
}

func openUpload(fh *multipart.FileHeader) (services.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, nil, err
	}
	return services.Upload{Filename: fh.Filename, Content: f}, func() { f.Close() }, nil
}

func logUnlinked(err error, courseID string) {
	var unlinked *services.UploadedButUnlinkedError
	if errors.As(err, &unlinked) {
		logger.Warn().
			Str("courseID", courseID).
			Str("publicID", unlinked.PublicID).
			Bool("cleaned", unlinked.Cleaned).
			Msg("Upload succeeded but the row write failed")
	}
}
