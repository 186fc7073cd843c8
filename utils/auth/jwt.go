package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrDisabled      = errors.New("impersonation is disabled")
)

// ImpersonationIssuer marks tokens minted by the Impersonator
const ImpersonationIssuer = "course-portal/impersonation"

// AuthMethod is one entry of the amr claim of an identity-service token
type AuthMethod struct {
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"`
}

// AccessClaims are the fields of an identity-service access token this
// service looks at. The signature is checked by the identity service itself.
type AccessClaims struct {
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	AMR          []AuthMethod           `json:"amr"`
	jwt.RegisteredClaims
}

// InspectAccessToken decodes a token without verifying it
func InspectAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Expired reports whether the token is past its exp claim at now
func (c *AccessClaims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// IsRecovery reports whether the token came out of an emailed link. Such
// tokens may only be used to set a new password.
func (c *AccessClaims) IsRecovery() bool {
	for _, m := range c.AMR {
		if m.Method == "otp" || m.Method == "recovery" {
			return true
		}
	}
	return false
}

// IsImpersonation reports whether the token was minted by the Impersonator
func (c *AccessClaims) IsImpersonation() bool {
	return c.Issuer == ImpersonationIssuer
}

// ImpersonationConfig holds impersonation token settings
type ImpersonationConfig struct {
	Secret string
	Expiry time.Duration
}

// ImpersonationClaims identify the user an admin is acting as
type ImpersonationClaims struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	ImpersonatedBy string `json:"impersonated_by"`
	jwt.RegisteredClaims
}

// Impersonator issues and checks impersonation tokens
type Impersonator struct {
	config ImpersonationConfig
	now    func() time.Time
}

// NewImpersonator creates an impersonator. An empty secret disables it.
func NewImpersonator(config ImpersonationConfig) *Impersonator {
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &Impersonator{config: config, now: time.Now}
}

// Enabled reports whether a signing secret is configured
func (i *Impersonator) Enabled() bool {
	return i != nil && i.config.Secret != ""
}

// Issue signs a token letting admin act as email
func (i *Impersonator) Issue(email, name, admin string) (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, ErrDisabled
	}
	now := i.now()
	expiresAt := now.Add(i.config.Expiry)

	claims := ImpersonationClaims{
		Email:          strings.ToLower(email),
		Name:           name,
		ImpersonatedBy: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    ImpersonationIssuer,
			Subject:   strings.ToLower(email),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.config.Secret))
	return signed, expiresAt, err
}

// Verify validates an impersonation token and returns its claims
func (i *Impersonator) Verify(tokenString string) (*ImpersonationClaims, error) {
	if !i.Enabled() {
		return nil, ErrDisabled
	}

	token, err := jwt.ParseWithClaims(tokenString, &ImpersonationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(i.config.Secret), nil
	},
		jwt.WithIssuer(ImpersonationIssuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ImpersonationClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
