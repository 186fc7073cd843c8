package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
)

// UserService manages rows of the users and admins tables
type UserService struct {
	store database.Storage
	now   func() time.Time
}

// NewUserService creates a new user service
func NewUserService(store database.Storage) *UserService {
	return &UserService{store: store, now: time.Now}
}

// ProfileInput is what users may change about themselves
type ProfileInput struct {
	Name  string `json:"name" validate:"omitempty,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
}

// UserInput is an admin-managed user row
type UserInput struct {
	Email  string `json:"email" validate:"omitempty,email"`
	Name   string `json:"name" validate:"omitempty,max=255"`
	Phone  string `json:"phone" validate:"omitempty,max=30"`
	Active *bool  `json:"active"`
}

// IsAdmin reports whether email is listed in the admins table
func (s *UserService) IsAdmin(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	var rows []model.Admin
	if err := s.store.Query(ctx, database.TableAdmins, &supabase.Query{
		Select: "id",
		Filter: supabase.Match(supabase.Eq("email", normalizeEmail(email))),
		Limit:  1,
	}, &rows); err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return len(rows) > 0, nil
}

// Profile returns the caller's users row, creating it on first access
func (s *UserService) Profile(ctx context.Context, caller model.Identity) (*model.UserProfile, error) {
	profile, err := s.FindByEmail(ctx, caller.Email)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}
	return s.EnsureProfile(ctx, caller.Email, caller.Name)
}

// EnsureProfile inserts a users row for email
func (s *UserService) EnsureProfile(ctx context.Context, email, name string, opts ...supabase.CallOption) (*model.UserProfile, error) {
	var created []model.UserProfile
	if err := s.store.Insert(ctx, database.TableUsers, map[string]interface{}{
		"email":  normalizeEmail(email),
		"name":   strings.TrimSpace(name),
		"active": true,
	}, &created, opts...); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	if len(created) == 0 {
		return nil, errors.New("failed to create profile: no row returned")
	}
	return &created[0], nil
}

// UpdateProfile changes the caller's own name and phone
func (s *UserService) UpdateProfile(ctx context.Context, caller model.Identity, in ProfileInput, opts ...supabase.CallOption) (*model.UserProfile, error) {
	if _, err := s.Profile(ctx, caller); err != nil {
		return nil, err
	}

	var updated []model.UserProfile
	if err := s.store.Update(ctx, database.TableUsers,
		supabase.Match(supabase.Eq("email", normalizeEmail(caller.Email))),
		map[string]interface{}{
			"name":       strings.TrimSpace(in.Name),
			"phone":      nullable(strings.TrimSpace(in.Phone)),
			"updated_at": s.now().UTC(),
		}, &updated, opts...); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if len(updated) == 0 {
		return nil, notFound("user", caller.Email)
	}
	return &updated[0], nil
}

// List returns every user newest first
func (s *UserService) List(ctx context.Context) ([]model.UserProfile, error) {
	users := []model.UserProfile{}
	if err := s.store.Query(ctx, database.TableUsers, &supabase.Query{
		Order: supabase.Desc("created_at"),
	}, &users); err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}

// FindByEmail returns the user with this email, or nil
func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	var rows []model.UserProfile
	if err := s.store.Query(ctx, database.TableUsers, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("email", normalizeEmail(email))),
		Limit:  1,
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return first(rows), nil
}

// Create inserts a user row
func (s *UserService) Create(ctx context.Context, in UserInput, opts ...supabase.CallOption) (*model.UserProfile, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, invalid("email is required")
	}
	var created []model.UserProfile
	if err := s.store.Insert(ctx, database.TableUsers, map[string]interface{}{
		"email":  email,
		"name":   strings.TrimSpace(in.Name),
		"phone":  nullable(strings.TrimSpace(in.Phone)),
		"active": boolOr(in.Active, true),
	}, &created, opts...); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if len(created) == 0 {
		return nil, errors.New("failed to create user: no row returned")
	}
	return &created[0], nil
}

// Update changes name, phone and active flag of a user. The email is the
// identity key and stays as it is.
func (s *UserService) Update(ctx context.Context, id int64, in UserInput, opts ...supabase.CallOption) (*model.UserProfile, error) {
	patch := map[string]interface{}{
		"name":       strings.TrimSpace(in.Name),
		"phone":      nullable(strings.TrimSpace(in.Phone)),
		"updated_at": s.now().UTC(),
	}
	if in.Active != nil {
		patch["active"] = *in.Active
	}

	var updated []model.UserProfile
	if err := s.store.Update(ctx, database.TableUsers, supabase.Match(supabase.Eq("id", id)), patch, &updated, opts...); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, notFound("user", id)
	}
	return &updated[0], nil
}

// Delete removes a user row. The identity account is left untouched.
func (s *UserService) Delete(ctx context.Context, id int64, opts ...supabase.CallOption) error {
	if err := s.store.Delete(ctx, database.TableUsers, supabase.Match(supabase.Eq("id", id)), opts...); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}
