package services

import (
	"errors"
	"fmt"

	"github.com/cct-academy/course-portal/services/supabase"
)

var (
	// ErrNotFound is returned when a referenced row does not exist. It is the
	// same sentinel the data client uses for single-row misses.
	ErrNotFound = supabase.ErrNotFound

	// ErrForbidden is returned when the caller may not act on the row
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput wraps request values the services refuse
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoLessons is returned when a certificate is requested for an empty course
	ErrNoLessons = errors.New("course has no lessons")
)

// IncompleteCourseError is returned when a certificate is requested before
// every lesson of the course is completed.
type IncompleteCourseError struct {
	Completion float64
}

func (e *IncompleteCourseError) Error() string {
	return fmt.Sprintf("course is %.0f%% complete", e.Completion)
}

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// nullable maps the empty string to a JSON null
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func first[T any](rows []T) *T {
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}
