package model

import (
	"time"
)

// UserProfile is the application's row for a person in the users table.
// Credentials live in the identity service, never here.
type UserProfile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Admin marks an email as an administrator
type Admin struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Identity is the resolved caller of a request
type Identity struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	IsAdmin      bool   `json:"is_admin"`
	Impersonated bool   `json:"impersonated,omitempty"`

	// AccessToken is forwarded to the database so row level policies apply.
	// Empty for impersonated identities.
	AccessToken string `json:"-"`
}
