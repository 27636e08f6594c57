package models

import "time"

// Lesson is a row of the lessons collection. Lessons are append-only.
type Lesson struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	VideoURL  *string   `json:"video_url" db:"video_url"`
	CourseID  string    `json:"course_id" db:"course_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
