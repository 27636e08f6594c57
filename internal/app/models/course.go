package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Course is a row of the courses collection.
// ImageURL holds a media content identifier, not a URL.
type Course struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description" db:"description"`
	ImageURL     *string   `json:"image_url" db:"image_url"`
	Objectives   []string  `json:"objectives" db:"objectives"`
	InstructorID string    `json:"instructor_id" db:"instructor_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ProfileJoin is the instructor embed of a catalog row, read as a
// collection holding at most one entry. The store may send it as null, a
// single object or an array.
type ProfileJoin []ProfileName

// UnmarshalJSON accepts null, an object or an array of objects.
func (j *ProfileJoin) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*j = ProfileJoin{}
		return nil
	case data[0] == '{':
		var p ProfileName
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*j = ProfileJoin{p}
		return nil
	}
	var list []ProfileName
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*j = ProfileJoin(list)
	return nil
}

// CatalogCourse is one card of the public catalog.
type CatalogCourse struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	ImageURL    *string     `json:"image_url"`
	Profiles    ProfileJoin `json:"profiles"`
}

// InstructorName returns the first joined profile name, or the anonymous
// label when the join produced nothing usable.
func (c *CatalogCourse) InstructorName() string {
	if len(c.Profiles) > 0 {
		if name := c.Profiles[0].Name(); name != "" {
			return name
		}
	}
	return AnonymousInstructorLabel
}

// LessonSummary is the lesson projection shown on the detail page.
type LessonSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CourseDetail is the detail page read: the instructor profile is an inner
// join, lessons a left join kept in store order.
type CourseDetail struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	ImageURL    *string         `json:"image_url"`
	Objectives  []string        `json:"objectives"`
	Profiles    *ProfileName    `json:"profiles"`
	Lessons     []LessonSummary `json:"lessons"`
}

// InstructorName returns the joined profile name or "Anonymous".
func (d *CourseDetail) InstructorName() string {
	if name := d.Profiles.Name(); name != "" {
		return name
	}
	return AnonymousLabel
}

// ObjectiveList returns the objectives, never nil.
func (d *CourseDetail) ObjectiveList() []string {
	if d.Objectives == nil {
		return []string{}
	}
	return d.Objectives
}
