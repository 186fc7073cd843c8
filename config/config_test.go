package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	cfg, err := Get()
	require.NoError(t, err)

	assert.Equal(t, "https://project.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 100, cfg.HTTP.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.HTTP.RateLimitWindow)
	assert.True(t, cfg.Cookie.Secure)
	assert.False(t, cfg.Cron.Enabled)
	assert.Equal(t, "certificate-templates", cfg.Storage.Bucket)
	assert.False(t, cfg.Storage.UseS3())
	assert.Equal(t, 24*time.Hour, cfg.Impersonation.TTL)
}

func TestGet_Overrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("PORT", "9090")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("EXPIRE_CRON_ENABLED", "true")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("STORAGE_S3_ENDPOINT", "https://project.supabase.co/storage/v1/s3")
	t.Setenv("STORAGE_S3_ACCESS_KEY", "key")
	t.Setenv("STORAGE_S3_SECRET_KEY", "secret")

	cfg, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.Cookie.Secure)
	assert.True(t, cfg.Cron.Enabled)
	assert.Equal(t, 30*time.Second, cfg.HTTP.RateLimitWindow)
	assert.True(t, cfg.Storage.UseS3())
}

func TestGet_MissingSupabase(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")

	_, err := Get()
	assert.Error(t, err)
}

func TestValidate_ShortImpersonationSecret(t *testing.T) {
	cfg := &Config{
		Port:          8080,
		Supabase:      SupabaseConfig{URL: "https://x", AnonKey: "k"},
		Impersonation: ImpersonationConfig{Secret: "short"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Impersonation.Secret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}
