package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
)

// LessonAccessFunction is the database function deciding whether an email's
// subscription covers a lesson.
const LessonAccessFunction = "user_has_lesson_access"

// Access reasons
const (
	AccessFreeLesson         = "free_lesson"
	AccessNotAuthenticated   = "not_authenticated"
	AccessAdmin              = "admin"
	AccessActiveSubscription = "active_subscription"
	AccessNoSubscription     = "no_active_subscription"
)

// LessonService serves lesson pages and their comments
type LessonService struct {
	store database.Storage
}

// NewLessonService creates a new lesson service
func NewLessonService(store database.Storage) *LessonService {
	return &LessonService{store: store}
}

// LessonWithModule is a lesson plus the module and course it belongs to
type LessonWithModule struct {
	model.Lesson
	ModuleTitle string `json:"module_title"`
	CourseID    int64  `json:"course_id"`
}

// LessonView is everything the lesson page needs
type LessonView struct {
	Lesson   *LessonWithModule `json:"lesson"`
	Comments []model.Comment   `json:"comments"`
}

// Access is the outcome of a lesson access check
type Access struct {
	HasAccess bool   `json:"hasAccess"`
	Reason    string `json:"reason"`
}

// CommentInput is a new comment. Name and email come from the session when
// there is one and are required otherwise.
type CommentInput struct {
	UserName    string `json:"user_name" validate:"omitempty,max=255"`
	UserEmail   string `json:"user_email" validate:"omitempty,email"`
	CommentText string `json:"comment_text" validate:"required,max=5000"`
}

// GetLesson returns the lesson with its module summary and comments, newest first
func (s *LessonService) GetLesson(ctx context.Context, id int64) (*LessonView, error) {
	var lesson model.Lesson
	if err := s.store.Query(ctx, database.TableLessons, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("id", id)),
		Single: true,
	}, &lesson); err != nil {
		return nil, fmt.Errorf("failed to fetch lesson %d: %w", id, err)
	}

	var modules []model.Module
	if err := s.store.Query(ctx, database.TableModules, &supabase.Query{
		Select: "id,title,course_id",
		Filter: supabase.Match(supabase.Eq("id", lesson.ModuleID)),
		Limit:  1,
	}, &modules); err != nil {
		return nil, fmt.Errorf("failed to fetch module %d: %w", lesson.ModuleID, err)
	}

	view := &LessonView{Lesson: &LessonWithModule{Lesson: lesson}}
	if m := first(modules); m != nil {
		view.Lesson.ModuleTitle = m.Title
		view.Lesson.CourseID = m.CourseID
	}

	comments, err := s.Comments(ctx, id)
	if err != nil {
		return nil, err
	}
	view.Comments = comments
	return view, nil
}

// Comments lists a lesson's comments newest first
func (s *LessonService) Comments(ctx context.Context, lessonID int64) ([]model.Comment, error) {
	comments := []model.Comment{}
	if err := s.store.Query(ctx, database.TableComments, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("lesson_id", lessonID)),
		Order:  supabase.Desc("created_at"),
	}, &comments); err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	return comments, nil
}

// CheckAccess decides whether the caller may watch a lesson. Anonymous
// callers only get free-trial lessons, admins get everything and everyone
// else is decided by the database function.
func (s *LessonService) CheckAccess(ctx context.Context, lessonID int64, caller *model.Identity) (Access, error) {
	if caller == nil {
		var lesson model.Lesson
		if err := s.store.Query(ctx, database.TableLessons, &supabase.Query{
			Select: "id,free_trial",
			Filter: supabase.Match(supabase.Eq("id", lessonID)),
			Single: true,
		}, &lesson); err != nil {
			return Access{}, fmt.Errorf("failed to fetch lesson %d: %w", lessonID, err)
		}
		if lesson.FreeTrial {
			return Access{HasAccess: true, Reason: AccessFreeLesson}, nil
		}
		return Access{HasAccess: false, Reason: AccessNotAuthenticated}, nil
	}

	if caller.IsAdmin {
		return Access{HasAccess: true, Reason: AccessAdmin}, nil
	}

	ok, err := s.HasLessonAccess(ctx, caller.Email, lessonID)
	if err != nil {
		return Access{}, err
	}
	if ok {
		return Access{HasAccess: true, Reason: AccessActiveSubscription}, nil
	}
	return Access{HasAccess: false, Reason: AccessNoSubscription}, nil
}

// HasLessonAccess asks the database whether email's plan covers the lesson
func (s *LessonService) HasLessonAccess(ctx context.Context, email string, lessonID int64) (bool, error) {
	var raw json.RawMessage
	err := s.store.RPC(ctx, LessonAccessFunction, map[string]interface{}{
		"email_usuario": email,
		"lesson_id":     lessonID,
	}, &raw)
	if err != nil {
		return false, fmt.Errorf("lesson access check failed: %w", err)
	}
	return decodeAccessResult(raw), nil
}

// decodeAccessResult accepts the shapes PostgREST produces for a boolean
// function: true, [true] and [{"user_has_lesson_access": true}].
func decodeAccessResult(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return false
		}
		return decodeAccessResult(list[0])
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		v, _ := obj[LessonAccessFunction].(bool)
		return v
	}
	return false
}

// AddComment appends a comment to an existing lesson. A signed-in caller's
// identity replaces whatever name and email the body carried.
func (s *LessonService) AddComment(ctx context.Context, lessonID int64, in CommentInput, caller *model.Identity, opts ...supabase.CallOption) (*model.Comment, error) {
	text := strings.TrimSpace(in.CommentText)
	if text == "" {
		return nil, invalid("comment_text is required")
	}

	name, email := strings.TrimSpace(in.UserName), strings.TrimSpace(in.UserEmail)
	if caller != nil {
		name, email = caller.Name, caller.Email
	}
	if name == "" || email == "" {
		return nil, invalid("user_name and user_email are required")
	}

	var lessons []model.Lesson
	if err := s.store.Query(ctx, database.TableLessons, &supabase.Query{
		Select: "id",
		Filter: supabase.Match(supabase.Eq("id", lessonID)),
		Limit:  1,
	}, &lessons); err != nil {
		return nil, fmt.Errorf("failed to fetch lesson %d: %w", lessonID, err)
	}
	if len(lessons) == 0 {
		return nil, notFound("lesson", lessonID)
	}

	var created []model.Comment
	err := s.store.Insert(ctx, database.TableComments, map[string]interface{}{
		"lesson_id":    lessonID,
		"user_name":    name,
		"user_email":   email,
		"comment_text": text,
	}, &created, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to add comment: no row returned")
	}
	return &created[0], nil
}
