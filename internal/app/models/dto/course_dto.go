package dto

import (
	"github.com/commandinlaw/academy/internal/app/models"
)

// CourseCardResponse is a catalog entry of the JSON API
type CourseCardResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	ImageID        *string `json:"imageId,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	InstructorName string  `json:"instructorName"`
}

// LessonSummaryResponse is a lesson entry of a course detail
type LessonSummaryResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CourseDetailResponse is a single course of the JSON API
type CourseDetailResponse struct {
	ID             string                  `json:"id"`
	Title          string                  `json:"title"`
	Description    *string                 `json:"description,omitempty"`
	ImageID        *string                 `json:"imageId,omitempty"`
	ImageURL       string                  `json:"imageUrl,omitempty"`
	InstructorName string                  `json:"instructorName"`
	Objectives     []string                `json:"objectives"`
	Lessons        []LessonSummaryResponse `json:"lessons"`
}

// ImageLinker resolves a media identifier into a delivery URL
type ImageLinker func(publicID string) string

// FromCatalogCourse maps a catalog read onto its API shape
func FromCatalogCourse(c *models.CatalogCourse, link ImageLinker) CourseCardResponse {
	resp := CourseCardResponse{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		ImageID:        c.ImageURL,
		InstructorName: c.InstructorName(),
	}
	if c.ImageURL != nil && *c.ImageURL != "" && link != nil {
		resp.ImageURL = link(*c.ImageURL)
	}
	return resp
}

// FromCourseDetail maps a detail read onto its API shape
func FromCourseDetail(id string, d *models.CourseDetail, link ImageLinker) CourseDetailResponse {
	resp := CourseDetailResponse{
		ID:             id,
		Title:          d.Title,
		Description:    d.Description,
		ImageID:        d.ImageURL,
		InstructorName: d.InstructorName(),
		Objectives:     d.ObjectiveList(),
		Lessons:        make([]LessonSummaryResponse, 0, len(d.Lessons)),
	}
	if d.ImageURL != nil && *d.ImageURL != "" && link != nil {
		resp.ImageURL = link(*d.ImageURL)
	}
	for _, l := range d.Lessons {
		resp.Lessons = append(resp.Lessons, LessonSummaryResponse{ID: l.ID, Title: l.Title})
	}
	return resp
}
