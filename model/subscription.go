package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription statuses
const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

// Access types reported by the user_tipo_acesso database function
const (
	AccessNone = "SEM_ACESSO"
	AccessFull = "COMPLETO"
)

// Plan is a purchasable access plan
type Plan struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
	DisplayOrder int             `json:"display_order"`
	IsActive     bool            `json:"is_active"`
	IsFreeTrial  bool            `json:"is_free_trial"`
	Features     []string        `json:"features"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Subscription grants a user the access of a plan until EndDate
type Subscription struct {
	ID        int64     `json:"id"`
	UserEmail string    `json:"user_email"`
	PlanID    int64     `json:"plan_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the subscription is past its end date at now,
// regardless of the stored status.
func (s *Subscription) Expired(now time.Time) bool {
	return !s.EndDate.After(now)
}

// SubscriptionWithPlan is the admin listing shape
type SubscriptionWithPlan struct {
	Subscription
	PlanName string `json:"plan_name"`
}

// CurrentSubscription is an active subscription joined with its plan
type CurrentSubscription struct {
	Subscription
	Plan *Plan `json:"plan"`
}

// AccessStatus tells the frontend which banner to show and what to unlock
type AccessStatus struct {
	Email                 string     `json:"email"`
	AccessType            string     `json:"accessType"`
	HasActiveSubscription bool       `json:"hasActiveSubscription"`
	HasFullAccess         bool       `json:"hasFullAccess"`
	ExpirationDate        *time.Time `json:"expirationDate"`
	SubscriptionDetail    *string    `json:"subscriptionDetail"`
}

// NoAccess is the status of a user without any subscription
func NoAccess(email string) AccessStatus {
	return AccessStatus{Email: email, AccessType: AccessNone}
}
