package model

import (
	"time"
)

// Course is a published (or draft) course in the catalog
type Course struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Instructor        string    `json:"instructor"`
	DurationHours     int       `json:"duration_hours"`
	IsPublished       bool      `json:"is_published"`
	OffersCertificate bool      `json:"offers_certificate"`
	CreatedAt         time.Time `json:"created_at"`
}

// CourseSummary is a course row with its computed content counts
type CourseSummary struct {
	Course
	ModulesCount int `json:"modules_count"`
	LessonsCount int `json:"lessons_count"`
}

// Module groups lessons inside a course. OrderIndex is a display hint only.
type Module struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
}

// ModuleWithLessons is the course detail shape of a module
type ModuleWithLessons struct {
	Module
	Lessons []Lesson `json:"lessons"`
}

// CourseDetail is a course with its ordered modules and lessons
type CourseDetail struct {
	Course  *Course             `json:"course"`
	Modules []ModuleWithLessons `json:"modules"`
}

// Video providers
const (
	VideoProviderYouTube = "youtube"
	VideoProviderVimeo   = "vimeo"
	VideoProviderURL     = "url"
)

// Lesson is a single video lesson
type Lesson struct {
	ID              int64        `json:"id"`
	ModuleID        int64        `json:"module_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	VideoURL        string       `json:"video_url"`
	VideoProvider   string       `json:"video_provider"`
	VideoID         string       `json:"video_id"`
	DurationMinutes int          `json:"duration_minutes"`
	OrderIndex      int          `json:"order_index"`
	FreeTrial       bool         `json:"free_trial"`
	SupportText     string       `json:"support_text"`
	Transcript      string       `json:"transcript"`
	Attachments     []Attachment `json:"attachments"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Attachment is a support file stored inline with its lesson (data is base64)
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// VideoURL builds the playable URL for a provider/video id pair.
// For the "url" provider the id already is the URL.
func VideoURL(provider, videoID string) string {
	if provider == "" || videoID == "" {
		return ""
	}
	switch provider {
	case VideoProviderYouTube:
		return "https://www.youtube.com/watch?v=" + videoID
	case VideoProviderVimeo:
		return "https://vimeo.com/" + videoID
	default:
		return videoID
	}
}

// Comment is an append-only note left on a lesson
type Comment struct {
	ID          int64     `json:"id"`
	LessonID    int64     `json:"lesson_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	CommentText string    `json:"comment_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Progress records whether a user finished a lesson
type Progress struct {
	ID          int64      `json:"id,omitempty"`
	UserEmail   string     `json:"user_email"`
	LessonID    int64      `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}
