package controllers_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/repositories/repotest"
	"github.com/commandinlaw/academy/internal/config"
)

func createForm(token, title string) url.Values {
	return url.Values{"form_token": {token}, "title": {title}, "description": {""}}
}

func TestCreatedCourseVisibleOnlyToOwner(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)
	h.instructor("u1")
	h.instructor("u2")
	u1, u2 := h.as("u1"), h.as("u2")

	token := formTokens(t, u1.get("/dashboard/create-course").Body.String())[0]
	expectRedirect(t, u1.postForm("/dashboard/create-course", createForm(token, "Contract Law")), "/dashboard")

	w := u1.get("/dashboard")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	expectBody(t, w, "Contract Law", "Created on: 1/1/2024", `data-alert="Course created successfully!"`)

	courses := h.store.Courses()
	if len(courses) != 1 || courses[0].InstructorID != "u1" || courses[0].Description != nil {
		t.Fatalf("unexpected rows %#v", courses)
	}

	w = u2.get("/dashboard")
	rejectBody(t, w, "Contract Law")
	expectBody(t, w, "You haven")
}

func TestDoubleSubmitCreatesOneCourse(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)
	h.instructor("u1")
	u1 := h.as("u1")

	token := formTokens(t, u1.get("/dashboard/create-course").Body.String())[0]
	expectRedirect(t, u1.postForm("/dashboard/create-course", createForm(token, "Torts")), "/dashboard")
	expectRedirect(t, u1.postForm("/dashboard/create-course", createForm(token, "Torts")), "/dashboard")

	if n := len(h.store.Courses()); n != 1 {
		t.Fatalf("courses = %d, want 1", n)
	}
}

func TestCreateCourseWithoutSessionShowsAlert(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)
	anon := h.anonymous()

	token := formTokens(t, anon.get("/dashboard/create-course").Body.String())[0]
	w := anon.postForm("/dashboard/create-course", createForm(token, "Torts"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	expectBody(t, w, `data-alert="You must be logged in to create a course."`, `value="Torts"`)
	if n := len(h.store.Courses()); n != 0 {
		t.Fatalf("courses = %d, want 0", n)
	}
}

func TestCreateCourseFailureKeepsForm(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)
	h.instructor("u1")
	h.store.FailOn(repotest.OpCreateCourse, errors.New("insert rejected"))
	u1 := h.as("u1")

	token := formTokens(t, u1.get("/dashboard/create-course").Body.String())[0]
	w := u1.postForm("/dashboard/create-course", createForm(token, "Torts"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	expectBody(t, w, "Error creating course: insert rejected", `value="Torts"`)
}

func TestBlankTitleDoesNotSubmit(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)
	h.instructor("u1")
	u1 := h.as("u1")

	token := formTokens(t, u1.get("/dashboard/create-course").Body.String())[0]
	w := u1.postForm("/dashboard/create-course", createForm(token, "   "))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if n := len(h.store.Courses()); n != 0 {
		t.Fatalf("courses = %d, want 0", n)
	}
}

func TestStudentIsSentAwayFromDashboard(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)
	h.store.AddProfile("s1", strPtr("Sam"), models.RoleStudent)

	expectRedirect(t, h.as("s1").get("/dashboard"), "/")
}

func TestDashboardRequiresSession(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)

	expectRedirect(t, h.anonymous().get("/dashboard"), "/login")
}

func TestDashboardListFailureShowsEmptyState(t *testing.T) {
	h := newHarness(t, config.SaveAllInvoke)
	h.instructor("u1")
	h.store.AddCourse(models.Course{Title: "Torts", InstructorID: "u1"})
	h.store.FailOn(repotest.OpListByInstructor, errors.New("timeout"))

	w := h.as("u1").get("/dashboard")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	expectBody(t, w, "You haven")
	rejectBody(t, w, "Torts")
}
