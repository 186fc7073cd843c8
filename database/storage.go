package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/services/supabase"
)

// Table names in the hosted database.
const (
	TableCourses              = "courses"
	TableModules              = "modules"
	TableLessons              = "lessons"
	TableComments             = "comments"
	TableUserProgress         = "user_progress"
	TablePlans                = "plans"
	TableSubscriptions        = "subscriptions"
	TableCertificateTemplates = "certificate_templates"
	TableCertificates         = "certificates"
	TableUsers                = "users"
	TableAdmins               = "admins"
)

// Storage is the data-access seam every service depends on. The production
// implementation is *supabase.Client; nothing here keeps state between calls.
type Storage interface {
	Query(ctx context.Context, table string, q *supabase.Query, dest interface{}, opts ...supabase.CallOption) error
	Insert(ctx context.Context, table string, data interface{}, dest interface{}, opts ...supabase.CallOption) error
	Update(ctx context.Context, table string, filter supabase.Filter, data interface{}, dest interface{}, opts ...supabase.CallOption) error
	Delete(ctx context.Context, table string, filter supabase.Filter, opts ...supabase.CallOption) error
	RPC(ctx context.Context, fn string, params interface{}, dest interface{}, opts ...supabase.CallOption) error
}

var _ Storage = (*supabase.Client)(nil)

// Start builds the hosted-database client and checks that it answers.
func Start(cfg *config.Config) (*supabase.Client, error) {
	client := supabase.NewClient(supabase.Config{
		BaseURL: cfg.Supabase.URL,
		APIKey:  cfg.Supabase.AnonKey,
		Timeout: cfg.Supabase.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database service unreachable at %s: %w", cfg.Supabase.URL, err)
	}
	return client, nil
}
