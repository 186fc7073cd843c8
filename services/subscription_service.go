package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/shopspring/decimal"
)

const unknownPlanName = "Unknown"

// SubscriptionService manages plans and the subscriptions granting them
type SubscriptionService struct {
	store database.Storage
	now   func() time.Time
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(store database.Storage) *SubscriptionService {
	return &SubscriptionService{store: store, now: time.Now}
}

// PlanInput is the writable part of a plan. ID is only read by the legacy
// "create or update" POST.
type PlanInput struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name" validate:"required,min=1,max=255"`
	Description  string          `json:"description" validate:"omitempty,max=5000"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days" validate:"required,min=1"`
	DisplayOrder int             `json:"display_order"`
	IsActive     *bool           `json:"is_active"`
	IsFreeTrial  bool            `json:"is_free_trial"`
	Features     []string        `json:"features" validate:"omitempty,dive,max=500"`
}

func (in PlanInput) row() map[string]interface{} {
	features := in.Features
	if features == nil {
		features = []string{}
	}
	return map[string]interface{}{
		"name":          in.Name,
		"description":   nullable(in.Description),
		"price":         in.Price,
		"duration_days": in.DurationDays,
		"display_order": in.DisplayOrder,
		"is_active":     boolOr(in.IsActive, true),
		"is_free_trial": in.IsFreeTrial,
		"features":      features,
	}
}

// GrantInput gives a user a plan. DurationDays overrides the plan's duration.
type GrantInput struct {
	UserEmail    string `json:"user_email" validate:"required,email"`
	PlanID       int64  `json:"plan_id" validate:"required,min=1"`
	DurationDays *int   `json:"duration_days" validate:"omitempty,min=1"`
	Detail       string `json:"detail" validate:"omitempty,max=500"`
	Origin       string `json:"origin" validate:"omitempty,max=100"`
}

// SubscriptionUpdate is an admin correction of a subscription. Only the
// fields present are written.
type SubscriptionUpdate struct {
	UserEmail string     `json:"user_email" validate:"omitempty,email"`
	PlanID    *int64     `json:"plan_id" validate:"omitempty,min=1"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Status    string     `json:"status" validate:"omitempty,oneof=active expired"`
	Detail    *string    `json:"detail" validate:"omitempty,max=500"`
	Origin    *string    `json:"origin" validate:"omitempty,max=100"`
}

// ListPlans returns plans by display order; inactive plans only when asked
func (s *SubscriptionService) ListPlans(ctx context.Context, includeInactive bool) ([]model.Plan, error) {
	q := &supabase.Query{Order: supabase.Asc("display_order")}
	if !includeInactive {
		q.Filter = supabase.Match(supabase.Eq("is_active", true))
	}
	plans := []model.Plan{}
	if err := s.store.Query(ctx, database.TablePlans, q, &plans); err != nil {
		return nil, fmt.Errorf("failed to fetch plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns one plan
func (s *SubscriptionService) GetPlan(ctx context.Context, id int64) (*model.Plan, error) {
	var plan model.Plan
	if err := s.store.Query(ctx, database.TablePlans, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("id", id)),
		Single: true,
	}, &plan); err != nil {
		return nil, fmt.Errorf("failed to fetch plan %d: %w", id, err)
	}
	return &plan, nil
}

// CreatePlan inserts a plan
func (s *SubscriptionService) CreatePlan(ctx context.Context, in PlanInput, opts ...supabase.CallOption) (*model.Plan, error) {
	if in.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	var created []model.Plan
	if err := s.store.Insert(ctx, database.TablePlans, in.row(), &created, opts...); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to create plan: no row returned")
	}
	return &created[0], nil
}

// UpdatePlan replaces the writable fields of a plan
func (s *SubscriptionService) UpdatePlan(ctx context.Context, id int64, in PlanInput, opts ...supabase.CallOption) (*model.Plan, error) {
	if in.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	var updated []model.Plan
	if err := s.store.Update(ctx, database.TablePlans, supabase.Match(supabase.Eq("id", id)), in.row(), &updated, opts...); err != nil {
		return nil, fmt.Errorf("failed to update plan %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, notFound("plan", id)
	}
	return &updated[0], nil
}

// DeletePlan removes a plan
func (s *SubscriptionService) DeletePlan(ctx context.Context, id int64, opts ...supabase.CallOption) error {
	if err := s.store.Delete(ctx, database.TablePlans, supabase.Match(supabase.Eq("id", id)), opts...); err != nil {
		return fmt.Errorf("failed to delete plan %d: %w", id, err)
	}
	return nil
}

// ListSubscriptions returns every subscription newest first with its plan name
func (s *SubscriptionService) ListSubscriptions(ctx context.Context) ([]model.SubscriptionWithPlan, error) {
	var subs []model.Subscription
	if err := s.store.Query(ctx, database.TableSubscriptions, &supabase.Query{
		Order: supabase.Desc("created_at"),
	}, &subs); err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	out := make([]model.SubscriptionWithPlan, len(subs))
	if len(subs) == 0 {
		return out, nil
	}

	names, err := s.planNames(ctx, subs)
	if err != nil {
		return nil, err
	}
	for i, sub := range subs {
		name, ok := names[sub.PlanID]
		if !ok {
			name = unknownPlanName
		}
		out[i] = model.SubscriptionWithPlan{Subscription: sub, PlanName: name}
	}
	return out, nil
}

func (s *SubscriptionService) planNames(ctx context.Context, subs []model.Subscription) (map[int64]string, error) {
	seen := map[int64]bool{}
	ids := []int64{}
	for _, sub := range subs {
		if !seen[sub.PlanID] {
			seen[sub.PlanID] = true
			ids = append(ids, sub.PlanID)
		}
	}

	var plans []model.Plan
	if err := s.store.Query(ctx, database.TablePlans, &supabase.Query{
		Select: "id,name",
		Filter: supabase.Match(supabase.In("id", supabase.Values(ids)...)),
	}, &plans); err != nil {
		return nil, fmt.Errorf("failed to fetch plans: %w", err)
	}

	names := make(map[int64]string, len(plans))
	for _, p := range plans {
		names[p.ID] = p.Name
	}
	return names, nil
}

// Grant gives in.UserEmail the plan for DurationDays (or the plan's own
// duration) from now. An existing active subscription is extended and moved
// to the plan, otherwise a new one is created.
func (s *SubscriptionService) Grant(ctx context.Context, in GrantInput, opts ...supabase.CallOption) (*model.Subscription, bool, error) {
	email := normalizeEmail(in.UserEmail)
	if email == "" || in.PlanID <= 0 {
		return nil, false, invalid("user_email and plan_id are required")
	}

	plan, err := s.GetPlan(ctx, in.PlanID)
	if err != nil {
		return nil, false, err
	}

	days := plan.DurationDays
	if in.DurationDays != nil {
		days = *in.DurationDays
	}
	if days <= 0 {
		return nil, false, invalid("duration_days must be positive")
	}

	start := s.now().UTC()
	end := start.AddDate(0, 0, days)

	var existing []model.Subscription
	if err := s.store.Query(ctx, database.TableSubscriptions, &supabase.Query{
		Filter: supabase.Match(
			supabase.Eq("user_email", email),
			supabase.Eq("status", model.SubscriptionActive),
		),
		Order: supabase.Desc("end_date"),
		Limit: 1,
	}, &existing); err != nil {
		return nil, false, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	if current := first(existing); current != nil {
		patch := map[string]interface{}{"plan_id": plan.ID, "end_date": end}
		if in.Detail != "" {
			patch["detail"] = in.Detail
		}
		if in.Origin != "" {
			patch["origin"] = in.Origin
		}

		var updated []model.Subscription
		err := s.store.Update(ctx, database.TableSubscriptions,
			supabase.Match(supabase.Eq("id", current.ID)),
			patch, &updated, opts...)
		if err != nil {
			return nil, false, fmt.Errorf("failed to extend subscription: %w", err)
		}
		if len(updated) == 0 {
			return nil, false, notFound("subscription", current.ID)
		}
		return &updated[0], false, nil
	}

	var created []model.Subscription
	err = s.store.Insert(ctx, database.TableSubscriptions, map[string]interface{}{
		"user_email": email,
		"plan_id":    plan.ID,
		"status":     model.SubscriptionActive,
		"start_date": start,
		"end_date":   end,
		"detail":     nullable(in.Detail),
		"origin":     nullable(in.Origin),
	}, &created, opts...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create subscription: %w", err)
	}
	if len(created) == 0 {
		return nil, false, fmt.Errorf("failed to create subscription: no row returned")
	}
	return &created[0], true, nil
}

// UpdateSubscription applies an admin correction to one subscription
func (s *SubscriptionService) UpdateSubscription(ctx context.Context, id int64, in SubscriptionUpdate, opts ...supabase.CallOption) (*model.Subscription, error) {
	patch := map[string]interface{}{}
	if email := normalizeEmail(in.UserEmail); email != "" {
		patch["user_email"] = email
	}
	if in.PlanID != nil {
		if _, err := s.GetPlan(ctx, *in.PlanID); err != nil {
			return nil, err
		}
		patch["plan_id"] = *in.PlanID
	}
	if in.StartDate != nil {
		patch["start_date"] = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		patch["end_date"] = in.EndDate.UTC()
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, invalid("end_date must not be before start_date")
	}
	if in.Status != "" {
		patch["status"] = in.Status
	}
	if in.Detail != nil {
		patch["detail"] = nullable(*in.Detail)
	}
	if in.Origin != nil {
		patch["origin"] = nullable(*in.Origin)
	}
	if len(patch) == 0 {
		return nil, invalid("nothing to update")
	}

	var updated []model.Subscription
	if err := s.store.Update(ctx, database.TableSubscriptions,
		supabase.Match(supabase.Eq("id", id)), patch, &updated, opts...); err != nil {
		return nil, fmt.Errorf("failed to update subscription %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, notFound("subscription", id)
	}
	return &updated[0], nil
}

// DeleteSubscription removes a subscription row
func (s *SubscriptionService) DeleteSubscription(ctx context.Context, id int64, opts ...supabase.CallOption) error {
	if err := s.store.Delete(ctx, database.TableSubscriptions, supabase.Match(supabase.Eq("id", id)), opts...); err != nil {
		return fmt.Errorf("failed to delete subscription %d: %w", id, err)
	}
	return nil
}

// Expire moves one subscription from active to expired and reports how many
// rows changed. Expiring an already expired subscription changes nothing.
func (s *SubscriptionService) Expire(ctx context.Context, id int64, opts ...supabase.CallOption) (int, error) {
	var updated []model.Subscription
	err := s.store.Update(ctx, database.TableSubscriptions,
		supabase.Match(supabase.Eq("id", id), supabase.Eq("status", model.SubscriptionActive)),
		map[string]interface{}{"status": model.SubscriptionExpired},
		&updated, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscription %d: %w", id, err)
	}
	if len(updated) > 0 {
		return len(updated), nil
	}

	var rows []model.Subscription
	if err := s.store.Query(ctx, database.TableSubscriptions, &supabase.Query{
		Select: "id",
		Filter: supabase.Match(supabase.Eq("id", id)),
		Limit:  1,
	}, &rows); err != nil {
		return 0, fmt.Errorf("failed to fetch subscription %d: %w", id, err)
	}
	if len(rows) == 0 {
		return 0, notFound("subscription", id)
	}
	return 0, nil
}

// ExpireAll expires every active subscription whose end date has passed.
// It reads the candidates and then updates them in one request; the update
// re-checks status so rows changed in between are not touched twice.
func (s *SubscriptionService) ExpireAll(ctx context.Context, opts ...supabase.CallOption) (int, error) {
	now := s.now().UTC()

	var due []model.Subscription
	if err := s.store.Query(ctx, database.TableSubscriptions, &supabase.Query{
		Select: "id",
		Filter: supabase.Match(
			supabase.Eq("status", model.SubscriptionActive),
			supabase.Lt("end_date", now),
		),
	}, &due); err != nil {
		return 0, fmt.Errorf("failed to fetch due subscriptions: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(due))
	for i, d := range due {
		ids[i] = d.ID
	}

	var updated []model.Subscription
	err := s.store.Update(ctx, database.TableSubscriptions,
		supabase.Match(
			supabase.In("id", supabase.Values(ids)...),
			supabase.Eq("status", model.SubscriptionActive),
		),
		map[string]interface{}{"status": model.SubscriptionExpired},
		&updated, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return len(updated), nil
}

// Current returns the user's active, unexpired subscription with its plan, or nil
func (s *SubscriptionService) Current(ctx context.Context, email string) (*model.CurrentSubscription, error) {
	var rows []model.Subscription
	if err := s.store.Query(ctx, database.TableSubscriptions, &supabase.Query{
		Filter: supabase.Match(
			supabase.Eq("user_email", normalizeEmail(email)),
			supabase.Eq("status", model.SubscriptionActive),
			supabase.Gt("end_date", s.now().UTC()),
		),
		Order: supabase.Desc("end_date"),
		Limit: 1,
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}

	sub := first(rows)
	if sub == nil {
		return nil, nil
	}

	current := &model.CurrentSubscription{Subscription: *sub}
	var plans []model.Plan
	if err := s.store.Query(ctx, database.TablePlans, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("id", sub.PlanID)),
		Limit:  1,
	}, &plans); err != nil {
		return nil, fmt.Errorf("failed to fetch plan %d: %w", sub.PlanID, err)
	}
	current.Plan = first(plans)
	return current, nil
}

// History returns every subscription of the user, latest first
func (s *SubscriptionService) History(ctx context.Context, email string) ([]model.SubscriptionWithPlan, error) {
	var subs []model.Subscription
	if err := s.store.Query(ctx, database.TableSubscriptions, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("user_email", normalizeEmail(email))),
		Order:  supabase.Desc("start_date"),
	}, &subs); err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	out := make([]model.SubscriptionWithPlan, len(subs))
	if len(subs) == 0 {
		return out, nil
	}
	names, err := s.planNames(ctx, subs)
	if err != nil {
		return nil, err
	}
	for i, sub := range subs {
		name, ok := names[sub.PlanID]
		if !ok {
			name = unknownPlanName
		}
		out[i] = model.SubscriptionWithPlan{Subscription: sub, PlanName: name}
	}
	return out, nil
}
