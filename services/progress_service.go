package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
)

// ProgressService tracks which lessons a user has completed
type ProgressService struct {
	store   database.Storage
	catalog *CatalogService
	now     func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(store database.Storage, catalog *CatalogService) *ProgressService {
	return &ProgressService{store: store, catalog: catalog, now: time.Now}
}

// LessonProgress is one lesson's completion state for a user
type LessonProgress struct {
	LessonID    int64      `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ProgressInput identifies a (user, lesson) pair
type ProgressInput struct {
	UserEmail string `json:"user_email" validate:"omitempty,email"`
	LessonID  int64  `json:"lesson_id" validate:"required,min=1"`
}

// Completion summarises a user's progress through a course
type Completion struct {
	TotalLessons     int     `json:"total_lessons"`
	CompletedLessons int     `json:"completed_lessons"`
	Percentage       float64 `json:"percentage"`
}

// CourseProgress returns the stored progress rows of email for the lessons of courseID
func (s *ProgressService) CourseProgress(ctx context.Context, email string, courseID int64) ([]LessonProgress, error) {
	lessonIDs, err := s.catalog.CourseLessonIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.lessonProgress(ctx, email, lessonIDs)
}

func (s *ProgressService) lessonProgress(ctx context.Context, email string, lessonIDs []int64) ([]LessonProgress, error) {
	progress := []LessonProgress{}
	if len(lessonIDs) == 0 {
		return progress, nil
	}

	var rows []model.Progress
	if err := s.store.Query(ctx, database.TableUserProgress, &supabase.Query{
		Select: "lesson_id,completed,completed_at",
		Filter: supabase.Match(
			supabase.Eq("user_email", normalizeEmail(email)),
			supabase.In("lesson_id", supabase.Values(lessonIDs)...),
		),
		Order: supabase.Asc("lesson_id"),
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch progress: %w", err)
	}

	for _, r := range rows {
		progress = append(progress, LessonProgress{
			LessonID:    r.LessonID,
			Completed:   r.Completed,
			CompletedAt: r.CompletedAt,
		})
	}
	return progress, nil
}

// Completion counts completed lessons of courseID for email
func (s *ProgressService) Completion(ctx context.Context, email string, courseID int64) (Completion, error) {
	lessonIDs, err := s.catalog.CourseLessonIDs(ctx, courseID)
	if err != nil {
		return Completion{}, err
	}
	progress, err := s.lessonProgress(ctx, email, lessonIDs)
	if err != nil {
		return Completion{}, err
	}

	c := Completion{TotalLessons: len(lessonIDs)}
	for _, p := range progress {
		if p.Completed {
			c.CompletedLessons++
		}
	}
	if c.TotalLessons > 0 {
		c.Percentage = float64(c.CompletedLessons) / float64(c.TotalLessons) * 100
	}
	return c, nil
}

// Complete marks the lesson completed for the user. The write is an upsert on
// (user_email, lesson_id), so repeated or concurrent calls keep a single row.
func (s *ProgressService) Complete(ctx context.Context, in ProgressInput, opts ...supabase.CallOption) error {
	email := normalizeEmail(in.UserEmail)
	if email == "" || in.LessonID <= 0 {
		return invalid("user_email and lesson_id are required")
	}

	opts = append([]supabase.CallOption{supabase.WithUpsert("user_email,lesson_id")}, opts...)
	err := s.store.Insert(ctx, database.TableUserProgress, map[string]interface{}{
		"user_email":   email,
		"lesson_id":    in.LessonID,
		"completed":    true,
		"completed_at": s.now().UTC(),
	}, nil, opts...)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Uncomplete clears the completion of the lesson for the user. It is a
// no-op when the user never completed it.
func (s *ProgressService) Uncomplete(ctx context.Context, in ProgressInput, opts ...supabase.CallOption) error {
	email := normalizeEmail(in.UserEmail)
	if email == "" || in.LessonID <= 0 {
		return invalid("user_email and lesson_id are required")
	}

	err := s.store.Update(ctx, database.TableUserProgress,
		supabase.Match(supabase.Eq("user_email", email), supabase.Eq("lesson_id", in.LessonID)),
		map[string]interface{}{"completed": false, "completed_at": nil},
		nil, opts...)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
