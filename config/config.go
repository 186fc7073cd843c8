package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return nil
}

// Config holds all application configuration
type Config struct {
	Env       string
	Port      int
	StaticDir string

	Supabase      SupabaseConfig
	HTTP          HTTPConfig
	Cookie        CookieConfig
	Redis         RedisConfig
	Impersonation ImpersonationConfig
	Cron          CronConfig
	Storage       StorageConfig
	Log           LogConfig
}

// SupabaseConfig points at the hosted database, identity and storage service.
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
}

// HTTPConfig holds security middleware settings
type HTTPConfig struct {
	AllowedOrigins    string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type CookieConfig struct {
	Secure bool
}

type RedisConfig struct {
	URL string
}

// ImpersonationConfig enables admin impersonation tokens when Secret is set.
type ImpersonationConfig struct {
	Secret string
	TTL    time.Duration
}

type CronConfig struct {
	Enabled        bool
	ExpireSchedule string
}

// StorageConfig selects the certificate template object store. S3 credentials
// switch uploads to the S3-compatible endpoint; otherwise the storage REST API is used.
type StorageConfig struct {
	Bucket      string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

// UseS3 reports whether S3 credentials are configured.
func (s StorageConfig) UseS3() bool {
	return s.S3Endpoint != "" && s.S3AccessKey != "" && s.S3SecretKey != ""
}

type LogConfig struct {
	Level  string
	Format string
}

// Get reads the configuration from the environment.
func Get() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyDefaults(v)

	cfg := &Config{
		Env:       v.GetString("GO_ENV"),
		Port:      v.GetInt("PORT"),
		StaticDir: v.GetString("STATIC_DIR"),
		Supabase: SupabaseConfig{
			URL:            strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
			AnonKey:        v.GetString("SUPABASE_ANON_KEY"),
			ServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
			Timeout:        v.GetDuration("SUPABASE_TIMEOUT"),
		},
		HTTP: HTTPConfig{
			AllowedOrigins:    v.GetString("ALLOWED_ORIGINS"),
			RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
			RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Cookie: CookieConfig{
			Secure: v.GetBool("COOKIE_SECURE"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Impersonation: ImpersonationConfig{
			Secret: v.GetString("IMPERSONATION_SECRET"),
			TTL:    v.GetDuration("IMPERSONATION_TTL"),
		},
		Cron: CronConfig{
			Enabled:        v.GetBool("EXPIRE_CRON_ENABLED"),
			ExpireSchedule: v.GetString("EXPIRE_CRON_SCHEDULE"),
		},
		Storage: StorageConfig{
			Bucket:      v.GetString("STORAGE_BUCKET"),
			S3Endpoint:  v.GetString("STORAGE_S3_ENDPOINT"),
			S3Region:    v.GetString("STORAGE_S3_REGION"),
			S3AccessKey: v.GetString("STORAGE_S3_ACCESS_KEY"),
			S3SecretKey: v.GetString("STORAGE_S3_SECRET_KEY"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("GO_ENV", "development")
	v.SetDefault("PORT", 8080)
	v.SetDefault("STATIC_DIR", "./public")
	v.SetDefault("SUPABASE_TIMEOUT", 30*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("IMPERSONATION_TTL", 24*time.Hour)
	v.SetDefault("EXPIRE_CRON_ENABLED", false)
	v.SetDefault("EXPIRE_CRON_SCHEDULE", "0 0 * * * *")
	v.SetDefault("STORAGE_BUCKET", "certificate-templates")
	v.SetDefault("STORAGE_S3_REGION", "us-east-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
}

// Validate checks that the settings required to serve traffic are present.
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return errors.New("SUPABASE_URL is required")
	}
	if c.Supabase.AnonKey == "" {
		return errors.New("SUPABASE_ANON_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("PORT must be between 1 and 65535")
	}
	if c.Impersonation.Secret != "" && len(c.Impersonation.Secret) < 32 {
		return errors.New("IMPERSONATION_SECRET must be at least 32 characters")
	}
	return nil
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
