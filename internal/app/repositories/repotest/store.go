// Package repotest provides an in-memory implementation of the repositories
// with the ownership rules of the real stores, for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/app/repositories"
	"github.com/commandinlaw/academy/internal/pkg/apperrors"
)

// Operation names accepted by FailOn.
const (
	OpListCatalog      = "courses.list_catalog"
	OpGetDetail        = "courses.get_detail"
	OpListByInstructor = "courses.list_by_instructor"
	OpGetCourse        = "courses.get"
	OpCreateCourse     = "courses.create"
	OpUpdateMetadata   = "courses.update_metadata"
	OpUpdateImage      = "courses.update_image"
	OpListLessons      = "lessons.list"
	OpCreateLesson     = "lessons.create"
	OpGetProfile       = "profiles.get"
)

// Store holds courses, lessons and profiles in memory.
type Store struct {
	mu       sync.Mutex
	courses  []*models.Course
	lessons  []*models.Lesson
	profiles map[string]*models.Profile
	fail     map[string]error
	clock    time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		profiles: map[string]*models.Profile{},
		fail:     map[string]error{},
		clock:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// Repositories returns the repository set backed by s.
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Courses:  &courseRepo{s},
		Lessons:  &lessonRepo{s},
		Profiles: &profileRepo{s},
	}
}

// FailOn makes every call of op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// AddProfile stores a profile. A nil fullName leaves the name unset.
func (s *Store) AddProfile(id string, fullName *string, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = &models.Profile{ID: id, FullName: fullName, Role: string(role)}
}

// AddCourse stores c as is, assigning an id and creation time when unset.
func (s *Store) AddCourse(c models.Course) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.tick()
	}
	s.courses = append(s.courses, &c)
	return c.ID
}

// Courses returns a snapshot of every course.
func (s *Store) Courses() []models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	return out
}

// Lessons returns a snapshot of every lesson.
func (s *Store) Lessons() []models.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		out = append(out, *l)
	}
	return out
}

func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Store) check(op string) error {
	return s.fail[op]
}

func (s *Store) course(id string) *models.Course {
	for _, c := range s.courses {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func actor(ctx context.Context) (string, error) {
	a, ok := repositories.ActorFrom(ctx)
	if !ok {
		return "", apperrors.ErrUnauthenticated
	}
	return a.UserID, nil
}

type courseRepo struct{ s *Store }

func (r *courseRepo) ListCatalog(ctx context.Context) ([]*models.CatalogCourse, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpListCatalog); err != nil {
		return nil, err
	}
	out := []*models.CatalogCourse{}
	for _, c := range s.courses {
		cc := &models.CatalogCourse{ID: c.ID, Title: c.Title, Description: c.Description, ImageURL: c.ImageURL, Profiles: []models.ProfileName{}}
		if p, ok := s.profiles[c.InstructorID]; ok {
			cc.Profiles = append(cc.Profiles, models.ProfileName{FullName: p.FullName})
		}
		out = append(out, cc)
	}
	return out, nil
}

func (r *courseRepo) GetDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpGetDetail); err != nil {
		return nil, err
	}
	c := s.course(id)
	if c == nil {
		return nil, apperrors.ErrCourseNotFound
	}
	p, ok := s.profiles[c.InstructorID]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	d := &models.CourseDetail{
		Title:       c.Title,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		Objectives:  append([]string(nil), c.Objectives...),
		Profiles:    &models.ProfileName{FullName: p.FullName},
		Lessons:     []models.LessonSummary{},
	}
	for _, l := range s.lessons {
		if l.CourseID == id {
			d.Lessons = append(d.Lessons, models.LessonSummary{ID: l.ID, Title: l.Title})
		}
	}
	return d, nil
}

func (r *courseRepo) ListByInstructor(ctx context.Context, instructorID string) ([]*models.Course, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpListByInstructor); err != nil {
		return nil, err
	}
	out := []*models.Course{}
	for _, c := range s.courses {
		if c.InstructorID == instructorID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpGetCourse); err != nil {
		return nil, err
	}
	c := s.course(id)
	if c == nil {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	cp.Objectives = append([]string(nil), c.Objectives...)
	return &cp, nil
}

func (r *courseRepo) Create(ctx context.Context, course *models.Course) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpCreateCourse); err != nil {
		return "", err
	}
	userID, err := actor(ctx)
	if err != nil {
		return "", err
	}
	if course.InstructorID != userID {
		return "", apperrors.NewForbiddenError(fmt.Sprintf("user %s cannot create courses for %s", userID, course.InstructorID))
	}
	c := &models.Course{
		ID:           uuid.NewString(),
		Title:        course.Title,
		Description:  course.Description,
		InstructorID: course.InstructorID,
		CreatedAt:    s.tick(),
	}
	s.courses = append(s.courses, c)
	course.ID = c.ID
	return c.ID, nil
}

func (r *courseRepo) owned(ctx context.Context, op, id string) (*models.Course, error) {
	if err := r.s.check(op); err != nil {
		return nil, err
	}
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	c := r.s.course(id)
	if c == nil || c.InstructorID != userID {
		return nil, apperrors.ErrCourseNotFound
	}
	return c, nil
}

func (r *courseRepo) UpdateMetadata(ctx context.Context, id, title string, description *string, objectives []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, err := r.owned(ctx, OpUpdateMetadata, id)
	if err != nil {
		return err
	}
	c.Title = title
	c.Description = description
	c.Objectives = append([]string{}, objectives...)
	return nil
}

func (r *courseRepo) UpdateImage(ctx context.Context, id, imageID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, err := r.owned(ctx, OpUpdateImage, id)
	if err != nil {
		return err
	}
	c.ImageURL = &imageID
	return nil
}

type lessonRepo struct{ s *Store }

func (r *lessonRepo) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpListLessons); err != nil {
		return nil, err
	}
	out := []*models.Lesson{}
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *lessonRepo) Create(ctx context.Context, lesson *models.Lesson) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpCreateLesson); err != nil {
		return "", err
	}
	userID, err := actor(ctx)
	if err != nil {
		return "", err
	}
	c := s.course(lesson.CourseID)
	if c == nil || c.InstructorID != userID {
		return "", apperrors.ErrCourseNotFound
	}
	l := *lesson
	l.ID = uuid.NewString()
	l.CreatedAt = s.tick()
	s.lessons = append(s.lessons, &l)
	lesson.ID = l.ID
	lesson.CreatedAt = l.CreatedAt
	return l.ID, nil
}

type profileRepo struct{ s *Store }

func (r *profileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpGetProfile); err != nil {
		return nil, err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}
