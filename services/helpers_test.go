package services

import (
	"testing"
	"time"

	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/services/supabase/supabasetest"
)

func newStore(t *testing.T) (*supabase.Client, *supabasetest.Server) {
	t.Helper()
	srv := supabasetest.New(t)
	return supabase.NewClient(supabase.Config{BaseURL: srv.URL, APIKey: supabasetest.APIKey}), srv
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }

// seedCourse creates a course with n modules of m lessons each and returns the lesson ids.
func seedCourse(srv *supabasetest.Server, courseID int64, modules, lessonsPerModule int) []int64 {
	srv.Seed("courses", map[string]interface{}{"id": courseID, "title": "Course", "is_published": true, "duration_hours": 12})
	var ids []int64
	for m := 0; m < modules; m++ {
		moduleID := courseID*100 + int64(m)
		srv.Seed("modules", map[string]interface{}{"id": moduleID, "course_id": courseID, "title": "Module", "order_index": m})
		for l := 0; l < lessonsPerModule; l++ {
			lessonID := moduleID*100 + int64(l)
			srv.Seed("lessons", map[string]interface{}{"id": lessonID, "module_id": moduleID, "title": "Lesson", "order_index": l})
			ids = append(ids, lessonID)
		}
	}
	return ids
}
