package services

import (
	"context"
	"fmt"

	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
)

// CatalogService reads and edits courses, modules and lessons
type CatalogService struct {
	store database.Storage
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store database.Storage) *CatalogService {
	return &CatalogService{store: store}
}

// CourseInput is the writable part of a course
type CourseInput struct {
	Title             string `json:"title" validate:"required,min=1,max=255"`
	Description       string `json:"description" validate:"omitempty,max=10000"`
	Instructor        string `json:"instructor" validate:"omitempty,max=255"`
	DurationHours     int    `json:"duration_hours" validate:"gte=0,lte=10000"`
	OffersCertificate *bool  `json:"offers_certificate"`
	IsPublished       *bool  `json:"is_published"`
}

func (in CourseInput) row() map[string]interface{} {
	return map[string]interface{}{
		"title":              in.Title,
		"description":        nullable(in.Description),
		"instructor":         nullable(in.Instructor),
		"duration_hours":     in.DurationHours,
		"offers_certificate": boolOr(in.OffersCertificate, true),
		"is_published":       boolOr(in.IsPublished, true),
	}
}

// ModuleInput is the writable part of a module. CourseID is ignored on update.
type ModuleInput struct {
	CourseID    int64  `json:"course_id" validate:"omitempty,min=1"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty,max=10000"`
	OrderIndex  int    `json:"order_index"`
}

// LessonInput is the writable part of a lesson. ModuleID is ignored on update.
type LessonInput struct {
	ModuleID        int64              `json:"module_id" validate:"omitempty,min=1"`
	Title           string             `json:"title" validate:"required,min=1,max=255"`
	Description     string             `json:"description" validate:"omitempty,max=10000"`
	VideoProvider   string             `json:"video_provider" validate:"omitempty,oneof=youtube vimeo url"`
	VideoID         string             `json:"video_id" validate:"omitempty,max=2048"`
	DurationMinutes int                `json:"duration_minutes" validate:"gte=0"`
	OrderIndex      int                `json:"order_index"`
	FreeTrial       bool               `json:"free_trial"`
	SupportText     string             `json:"support_text"`
	Transcript      string             `json:"transcript"`
	Attachments     []model.Attachment `json:"attachments" validate:"omitempty,dive"`
}

func (in LessonInput) row() map[string]interface{} {
	attachments := in.Attachments
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	return map[string]interface{}{
		"title":            in.Title,
		"description":      nullable(in.Description),
		"video_url":        nullable(model.VideoURL(in.VideoProvider, in.VideoID)),
		"video_provider":   nullable(in.VideoProvider),
		"video_id":         nullable(in.VideoID),
		"duration_minutes": in.DurationMinutes,
		"order_index":      in.OrderIndex,
		"free_trial":       in.FreeTrial,
		"support_text":     nullable(in.SupportText),
		"transcript":       nullable(in.Transcript),
		"attachments":      attachments,
	}
}

// ListCourses returns courses newest first with module and lesson counts.
// Drafts are included only when includeDrafts is set. The counts cost one
// query per table regardless of the number of courses.
func (s *CatalogService) ListCourses(ctx context.Context, includeDrafts bool) ([]model.CourseSummary, error) {
	q := &supabase.Query{Order: supabase.Desc("created_at")}
	if !includeDrafts {
		q.Filter = supabase.Match(supabase.Eq("is_published", true))
	}

	var courses []model.Course
	if err := s.store.Query(ctx, database.TableCourses, q, &courses); err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}

	summaries := make([]model.CourseSummary, len(courses))
	if len(courses) == 0 {
		return summaries, nil
	}

	courseIDs := make([]int64, len(courses))
	for i, c := range courses {
		courseIDs[i] = c.ID
	}

	var modules []model.Module
	if err := s.store.Query(ctx, database.TableModules, &supabase.Query{
		Select: "id,course_id",
		Filter: supabase.Match(supabase.In("course_id", supabase.Values(courseIDs)...)),
	}, &modules); err != nil {
		return nil, fmt.Errorf("failed to fetch modules: %w", err)
	}

	moduleCourse := make(map[int64]int64, len(modules))
	modulesPerCourse := map[int64]int{}
	moduleIDs := make([]int64, 0, len(modules))
	for _, m := range modules {
		moduleCourse[m.ID] = m.CourseID
		modulesPerCourse[m.CourseID]++
		moduleIDs = append(moduleIDs, m.ID)
	}

	lessonsPerCourse := map[int64]int{}
	if len(moduleIDs) > 0 {
		var lessons []model.Lesson
		if err := s.store.Query(ctx, database.TableLessons, &supabase.Query{
			Select: "id,module_id",
			Filter: supabase.Match(supabase.In("module_id", supabase.Values(moduleIDs)...)),
		}, &lessons); err != nil {
			return nil, fmt.Errorf("failed to fetch lessons: %w", err)
		}
		for _, l := range lessons {
			lessonsPerCourse[moduleCourse[l.ModuleID]]++
		}
	}

	for i, c := range courses {
		summaries[i] = model.CourseSummary{
			Course:       c,
			ModulesCount: modulesPerCourse[c.ID],
			LessonsCount: lessonsPerCourse[c.ID],
		}
	}
	return summaries, nil
}

// GetCourse returns one course
func (s *CatalogService) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	var course model.Course
	err := s.store.Query(ctx, database.TableCourses, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("id", id)),
		Single: true,
	}, &course)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch course %d: %w", id, err)
	}
	return &course, nil
}

// CourseDetail returns a course with its modules and their lessons, both in
// order_index order.
func (s *CatalogService) CourseDetail(ctx context.Context, id int64) (*model.CourseDetail, error) {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	var modules []model.Module
	if err := s.store.Query(ctx, database.TableModules, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("course_id", id)),
		Order:  supabase.Asc("order_index"),
	}, &modules); err != nil {
		return nil, fmt.Errorf("failed to fetch modules: %w", err)
	}

	detail := &model.CourseDetail{Course: course, Modules: make([]model.ModuleWithLessons, len(modules))}
	if len(modules) == 0 {
		return detail, nil
	}

	moduleIDs := make([]int64, len(modules))
	position := make(map[int64]int, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
		position[m.ID] = i
		detail.Modules[i] = model.ModuleWithLessons{Module: m, Lessons: []model.Lesson{}}
	}

	var lessons []model.Lesson
	if err := s.store.Query(ctx, database.TableLessons, &supabase.Query{
		Filter: supabase.Match(supabase.In("module_id", supabase.Values(moduleIDs)...)),
		Order:  supabase.Asc("order_index"),
	}, &lessons); err != nil {
		return nil, fmt.Errorf("failed to fetch lessons: %w", err)
	}

	for _, l := range lessons {
		i, ok := position[l.ModuleID]
		if !ok {
			continue
		}
		detail.Modules[i].Lessons = append(detail.Modules[i].Lessons, l)
	}
	return detail, nil
}

// CourseLessonIDs returns the ids of every lesson in the course
func (s *CatalogService) CourseLessonIDs(ctx context.Context, courseID int64) ([]int64, error) {
	var modules []model.Module
	if err := s.store.Query(ctx, database.TableModules, &supabase.Query{
		Select: "id",
		Filter: supabase.Match(supabase.Eq("course_id", courseID)),
	}, &modules); err != nil {
		return nil, fmt.Errorf("failed to fetch modules: %w", err)
	}
	if len(modules) == 0 {
		return []int64{}, nil
	}

	moduleIDs := make([]int64, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}

	var lessons []model.Lesson
	if err := s.store.Query(ctx, database.TableLessons, &supabase.Query{
		Select: "id",
		Filter: supabase.Match(supabase.In("module_id", supabase.Values(moduleIDs)...)),
	}, &lessons); err != nil {
		return nil, fmt.Errorf("failed to fetch lessons: %w", err)
	}

	ids := make([]int64, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	return ids, nil
}

// CreateCourse inserts a course. Certificates and publication default to on.
func (s *CatalogService) CreateCourse(ctx context.Context, in CourseInput, opts ...supabase.CallOption) (*model.Course, error) {
	var created []model.Course
	if err := s.store.Insert(ctx, database.TableCourses, in.row(), &created, opts...); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to create course: no row returned")
	}
	return &created[0], nil
}

// UpdateCourse replaces the writable fields of a course
func (s *CatalogService) UpdateCourse(ctx context.Context, id int64, in CourseInput, opts ...supabase.CallOption) (*model.Course, error) {
	var updated []model.Course
	if err := s.store.Update(ctx, database.TableCourses, supabase.Match(supabase.Eq("id", id)), in.row(), &updated, opts...); err != nil {
		return nil, fmt.Errorf("failed to update course %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, notFound("course", id)
	}
	return &updated[0], nil
}

// DeleteCourse removes a course; the database cascades to modules and lessons
func (s *CatalogService) DeleteCourse(ctx context.Context, id int64, opts ...supabase.CallOption) error {
	if err := s.store.Delete(ctx, database.TableCourses, supabase.Match(supabase.Eq("id", id)), opts...); err != nil {
		return fmt.Errorf("failed to delete course %d: %w", id, err)
	}
	return nil
}

// FindCourseByTitle returns the course with exactly this title, or nil
func (s *CatalogService) FindCourseByTitle(ctx context.Context, title string) (*model.Course, error) {
	var rows []model.Course
	if err := s.store.Query(ctx, database.TableCourses, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("title", title)),
		Limit:  1,
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	return first(rows), nil
}

// CreateModule inserts a module into an existing course
func (s *CatalogService) CreateModule(ctx context.Context, in ModuleInput, opts ...supabase.CallOption) (*model.Module, error) {
	if in.CourseID <= 0 {
		return nil, invalid("course_id is required")
	}
	var created []model.Module
	err := s.store.Insert(ctx, database.TableModules, map[string]interface{}{
		"course_id":   in.CourseID,
		"title":       in.Title,
		"description": nullable(in.Description),
		"order_index": in.OrderIndex,
	}, &created, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to create module: no row returned")
	}
	return &created[0], nil
}

// UpdateModule replaces title, description and order of a module
func (s *CatalogService) UpdateModule(ctx context.Context, id int64, in ModuleInput, opts ...supabase.CallOption) (*model.Module, error) {
	var updated []model.Module
	err := s.store.Update(ctx, database.TableModules, supabase.Match(supabase.Eq("id", id)), map[string]interface{}{
		"title":       in.Title,
		"description": nullable(in.Description),
		"order_index": in.OrderIndex,
	}, &updated, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to update module %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, notFound("module", id)
	}
	return &updated[0], nil
}

// DeleteModule removes a module and, through the database, its lessons
func (s *CatalogService) DeleteModule(ctx context.Context, id int64, opts ...supabase.CallOption) error {
	if err := s.store.Delete(ctx, database.TableModules, supabase.Match(supabase.Eq("id", id)), opts...); err != nil {
		return fmt.Errorf("failed to delete module %d: %w", id, err)
	}
	return nil
}

// FindModuleByTitle returns the module of courseID with exactly this title, or nil
func (s *CatalogService) FindModuleByTitle(ctx context.Context, courseID int64, title string) (*model.Module, error) {
	var rows []model.Module
	if err := s.store.Query(ctx, database.TableModules, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("course_id", courseID), supabase.Eq("title", title)),
		Limit:  1,
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to find module: %w", err)
	}
	return first(rows), nil
}

// CreateLesson inserts a lesson, deriving video_url from the provider
func (s *CatalogService) CreateLesson(ctx context.Context, in LessonInput, opts ...supabase.CallOption) (*model.Lesson, error) {
	if in.ModuleID <= 0 {
		return nil, invalid("module_id is required")
	}
	row := in.row()
	row["module_id"] = in.ModuleID

	var created []model.Lesson
	if err := s.store.Insert(ctx, database.TableLessons, row, &created, opts...); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to create lesson: no row returned")
	}
	return &created[0], nil
}

// UpdateLesson replaces the writable fields of a lesson
func (s *CatalogService) UpdateLesson(ctx context.Context, id int64, in LessonInput, opts ...supabase.CallOption) (*model.Lesson, error) {
	var updated []model.Lesson
	if err := s.store.Update(ctx, database.TableLessons, supabase.Match(supabase.Eq("id", id)), in.row(), &updated, opts...); err != nil {
		return nil, fmt.Errorf("failed to update lesson %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, notFound("lesson", id)
	}
	return &updated[0], nil
}

// DeleteLesson removes a lesson
func (s *CatalogService) DeleteLesson(ctx context.Context, id int64, opts ...supabase.CallOption) error {
	if err := s.store.Delete(ctx, database.TableLessons, supabase.Match(supabase.Eq("id", id)), opts...); err != nil {
		return fmt.Errorf("failed to delete lesson %d: %w", id, err)
	}
	return nil
}

// FindLessonByTitle returns the lesson of moduleID with exactly this title, or nil
func (s *CatalogService) FindLessonByTitle(ctx context.Context, moduleID int64, title string) (*model.Lesson, error) {
	var rows []model.Lesson
	if err := s.store.Query(ctx, database.TableLessons, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("module_id", moduleID), supabase.Eq("title", title)),
		Limit:  1,
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to find lesson: %w", err)
	}
	return first(rows), nil
}
