package database

import (
	"testing"

	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/services/supabase/supabasetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart(t *testing.T) {
	srv := supabasetest.New(t)

	client, err := Start(&config.Config{Supabase: config.SupabaseConfig{URL: srv.URL, AnonKey: supabasetest.APIKey}})
	require.NoError(t, err)
	assert.Equal(t, srv.URL, client.BaseURL())
}

func TestStart_BadKey(t *testing.T) {
	srv := supabasetest.New(t)

	_, err := Start(&config.Config{Supabase: config.SupabaseConfig{URL: srv.URL, AnonKey: "nope"}})
	assert.Error(t, err)
}
