package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title    string `json:"title" validate:"required,max=5"`
	Email    string `json:"user_email" validate:"omitempty,email"`
	Provider string `json:"video_provider" validate:"omitempty,oneof=youtube vimeo url"`
	Days     int    `json:"duration_days" validate:"min=1"`
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(sample{Email: "nope", Provider: "dailymotion"})
	require.Error(t, err)

	fields := FormatValidationErrors(err)
	assert.Equal(t, "title is required", fields["title"])
	assert.Equal(t, "Invalid email format", fields["user_email"])
	assert.Equal(t, "video_provider must be one of: youtube vimeo url", fields["video_provider"])
	assert.Equal(t, "duration_days must be at least 1", fields["duration_days"])
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.NoError(t, NewValidator().ValidateStruct(sample{Title: "Go", Days: 30}))
}

func TestValidatePassword(t *testing.T) {
	assert.False(t, ValidatePassword("12345"))
	assert.True(t, ValidatePassword("123456"))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ana@example.com"))
	assert.False(t, ValidateEmail("ana@"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Go 101", SanitizeString("  Go\x00 101 "))
}
