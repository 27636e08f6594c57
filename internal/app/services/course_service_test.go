package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/app/repositories/repotest"
	"github.com/commandinlaw/academy/internal/config"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
	"github.com/commandinlaw/academy/internal/pkg/media"
	"github.com/commandinlaw/academy/internal/pkg/media/mediatest"
)

func as(userID string) context.Context {
	return repositories.WithActor(context.Background(), repositories.Actor{UserID: userID, AccessToken: "token-" + userID})
}

func newCourseService(store *repotest.Store, host *mediatest.Host, mode string) CourseService {
	repos := store.Repositories()
	return NewCourseService(repos.Courses, repos.Lessons, host, mode)
}

func TestCreateCourseInsertsOnlyCreationFields(t *testing.T) {
	store := repotest.NewStore()
	svc := newCourseService(store, mediatest.NewHost(), config.SaveAllInvoke)

	id, err := svc.CreateCourse(as("u1"), "u1", "Torts", "")
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	courses := store.Courses()
	if len(courses) != 1 || courses[0].ID != id {
		t.Fatalf("unexpected courses %#v", courses)
	}
	c := courses[0]
	if c.InstructorID != "u1" || c.Description != nil || c.ImageURL != nil || c.Objectives != nil {
		t.Fatalf("unexpected row %#v", c)
	}
}

func TestCreateCourseRequiresUserAndTitle(t *testing.T) {
	svc := newCourseService(repotest.NewStore(), mediatest.NewHost(), config.SaveAllInvoke)
	if _, err := svc.CreateCourse(context.Background(), "", "Torts", ""); !errors.Is(err, apperrors.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.CreateCourse(as("u1"), "u1", "  ", ""); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestLoadManagePageFailsAsAWhole(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	svc := newCourseService(store, mediatest.NewHost(), config.SaveAllInvoke)

	page, err := svc.LoadManagePage(as("u1"), id)
	if err != nil {
		t.Fatalf("LoadManagePage: %v", err)
	}
	if page.Course.Title != "Torts" || page.Lessons == nil {
		t.Fatalf("unexpected page %#v", page)
	}

	store.FailOn(repotest.OpListLessons, errors.New("lessons unavailable"))
	if page, err := svc.LoadManagePage(as("u1"), id); err == nil || page != nil {
		t.Fatalf("expected failure without partial page, got %#v, %v", page, err)
	}

	if _, err := svc.LoadManagePage(as("u1"), "missing"); !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestUpdateDetailsOverwritesAllFields(t *testing.T) {
	store := repotest.NewStore()
	desc := "old"
	id := store.AddCourse(models.Course{Title: "Old", Description: &desc, Objectives: []string{"a", "b"}, InstructorID: "u1"})
	svc := newCourseService(store, mediatest.NewHost(), config.SaveAllInvoke)

	err := svc.UpdateDetails(as("u1"), id, models.CourseDraft{Title: "New", Objectives: []string{"c"}})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	c := store.Courses()[0]
	if c.Title != "New" || c.Description != nil || len(c.Objectives) != 1 || c.Objectives[0] != "c" {
		t.Fatalf("unexpected row %#v", c)
	}

	if err := svc.UpdateDetails(as("u2"), id, models.CourseDraft{Title: "Hijack"}); !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("foreign update should fail, got %v", err)
	}
}

func TestSaveAllModes(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Old", InstructorID: "u1"})
	draft := models.CourseDraft{Title: "New"}

	wrote, err := newCourseService(store, mediatest.NewHost(), config.SaveAllNoop).SaveAll(as("u1"), id, draft)
	if err != nil || wrote {
		t.Fatalf("noop SaveAll = %v, %v", wrote, err)
	}
	if store.Courses()[0].Title != "Old" {
		t.Fatalf("noop SaveAll must not write")
	}

	wrote, err = newCourseService(store, mediatest.NewHost(), config.SaveAllInvoke).SaveAll(as("u1"), id, draft)
	if err != nil || !wrote {
		t.Fatalf("invoke SaveAll = %v, %v", wrote, err)
	}
	if store.Courses()[0].Title != "New" {
		t.Fatalf("invoke SaveAll must write")
	}
}

func TestUploadImageLinksAfterUpload(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	host := mediatest.NewHost()
	svc := newCourseService(store, host, config.SaveAllInvoke)

	publicID, err := svc.UploadImage(as("u1"), id, Upload{Filename: "a.png", Content: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if got := store.Courses()[0].ImageURL; got == nil || *got != publicID {
		t.Fatalf("image_url = %v, want %s", got, publicID)
	}
}

func TestUploadImageFailureLeavesCourseUntouched(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	host := mediatest.NewHost()
	host.UploadErr = "Upload preset not found"
	svc := newCourseService(store, host, config.SaveAllInvoke)

	_, err := svc.UploadImage(as("u1"), id, Upload{Filename: "a.png", Content: strings.NewReader("png")})
	if !errors.Is(err, apperrors.ErrMediaUpload) || apperrors.Message(err) != "Upload preset not found" {
		t.Fatalf("unexpected error %v", err)
	}
	if store.Courses()[0].ImageURL != nil {
		t.Fatalf("image_url must stay unset")
	}
}

func TestUploadImageRowFailureIsUnlinked(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	host := mediatest.NewHost()
	svc := newCourseService(store, host, config.SaveAllInvoke)

	_, err := svc.UploadImage(as("u2"), id, Upload{Filename: "a.png", Content: strings.NewReader("png")})
	var unlinked *UploadedButUnlinkedError
	if !errors.As(err, &unlinked) {
		t.Fatalf("expected UploadedButUnlinkedError, got %v", err)
	}
	if !unlinked.Cleaned || len(host.Destroyed) != 1 || host.Count() != 0 {
		t.Fatalf("upload should have been cleaned up: %#v", unlinked)
	}
	if !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("cause should be kept, got %v", err)
	}
}

func TestUnlinkedCleanupUnsupported(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	host := mediatest.NewHost()
	host.DestroyErr = media.ErrDestroyUnsupported
	store.FailOn(repotest.OpCreateLesson, apperrors.NewUpstreamError("insert failed", 500))
	svc := newCourseService(store, host, config.SaveAllInvoke)

	_, err := svc.AddLesson(as("u1"), id, "Intro", Upload{Filename: "v.mp4", Content: strings.NewReader("mp4")})
	var unlinked *UploadedButUnlinkedError
	if !errors.As(err, &unlinked) || unlinked.Cleaned || unlinked.Kind != media.KindVideo {
		t.Fatalf("unexpected error %#v", err)
	}
	if apperrors.Message(err) != "insert failed" {
		t.Fatalf("message = %q", apperrors.Message(err))
	}
	if host.Count() != 1 {
		t.Fatalf("video should remain on the host")
	}
}

func TestAddLessonAppendsOneRow(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	svc := newCourseService(store, mediatest.NewHost(), config.SaveAllInvoke)

	for _, title := range []string{"One", "Two"} {
		if _, err := svc.AddLesson(as("u1"), id, title, Upload{Filename: "v.mp4", Content: strings.NewReader("x")}); err != nil {
			t.Fatalf("AddLesson: %v", err)
		}
	}
	before, _ := svc.LoadManagePage(as("u1"), id)

	lesson, err := svc.AddLesson(as("u1"), id, "Intro", Upload{Filename: "v.mp4", Content: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("AddLesson: %v", err)
	}
	if lesson.VideoURL == nil || *lesson.VideoURL == "" {
		t.Fatalf("lesson should reference the uploaded video")
	}

	after, _ := svc.LoadManagePage(as("u1"), id)
	if len(after.Lessons) != len(before.Lessons)+1 {
		t.Fatalf("expected %d lessons, got %d", len(before.Lessons)+1, len(after.Lessons))
	}
	if last := after.Lessons[len(after.Lessons)-1]; last.Title != "Intro" {
		t.Fatalf("new lesson should be last, got %q", last.Title)
	}
}

func TestAddLessonRequiresTitleAndVideo(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	host := mediatest.NewHost()
	svc := newCourseService(store, host, config.SaveAllInvoke)

	if _, err := svc.AddLesson(as("u1"), id, "", Upload{Filename: "v.mp4", Content: strings.NewReader("x")}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.AddLesson(as("u1"), id, "Intro", Upload{}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if host.Count() != 0 || len(store.Lessons()) != 0 {
		t.Fatalf("nothing should be written")
	}
}
