package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/utils/auth"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	identityKey = "identity"
	resolvedKey = "identity_resolved"
)

// ErrRecoverySession is returned for tokens that came from a password reset
// link. They are only good for setting a new password.
var ErrRecoverySession = errors.New("password_reset_required")

// IdentityClient is the part of the identity service the bridge talks to
type IdentityClient interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
}

// AdminChecker decides whether an email belongs to an administrator
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// AuthMiddleware turns the session cookies into an identity. No session state
// is kept here; every request is resolved from its own cookies.
type AuthMiddleware struct {
	identity     IdentityClient
	admins       AdminChecker
	impersonator *auth.Impersonator
	cookies      auth.Cookies
	now          func() time.Time
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(identity IdentityClient, admins AdminChecker, impersonator *auth.Impersonator, cookies auth.Cookies) *AuthMiddleware {
	return &AuthMiddleware{
		identity:     identity,
		admins:       admins,
		impersonator: impersonator,
		cookies:      cookies,
		now:          time.Now,
	}
}

// Resolve returns the caller's identity, or nil for anonymous requests. An
// expired access token is refreshed once and the new cookies are written to
// the response. The result is cached on the request.
func (m *AuthMiddleware) Resolve(c *fiber.Ctx) (*model.Identity, error) {
	if r, ok := c.Locals(resolvedKey).(resolution); ok {
		return r.id, r.err
	}

	id, err := m.resolve(c)
	c.Locals(resolvedKey, resolution{id: id, err: err})
	if id != nil {
		c.Locals(identityKey, id)
	}
	return id, err
}

type resolution struct {
	id  *model.Identity
	err error
}

func (m *AuthMiddleware) resolve(c *fiber.Ctx) (*model.Identity, error) {
	accessToken, refreshToken := auth.Tokens(c)
	if accessToken == "" && refreshToken == "" {
		return nil, nil
	}
	ctx := c.UserContext()
	log := logger.FromContext(ctx)

	claims, inspectErr := auth.InspectAccessToken(accessToken)
	if inspectErr == nil && claims.IsImpersonation() {
		return m.impersonated(ctx, accessToken)
	}
	if inspectErr == nil && claims.IsRecovery() {
		return nil, ErrRecoverySession
	}

	refreshed := false
	if accessToken == "" || (inspectErr == nil && claims.Expired(m.now())) {
		if refreshToken == "" {
			return nil, nil
		}
		session, err := m.identity.RefreshSession(ctx, refreshToken)
		if err != nil {
			log.Debug("session refresh failed", zap.Error(err))
			m.cookies.Clear(c)
			return nil, nil
		}
		m.cookies.SetSession(c, session.AccessToken, session.RefreshToken)
		accessToken = session.AccessToken
		refreshed = true
	}

	user, err := m.identity.GetUser(ctx, accessToken)
	if err != nil {
		if refreshed || refreshToken == "" || !supabase.IsUpstreamClientError(err) {
			log.Debug("access token rejected", zap.Error(err))
			return nil, nil
		}
		session, rerr := m.identity.RefreshSession(ctx, refreshToken)
		if rerr != nil {
			m.cookies.Clear(c)
			return nil, nil
		}
		m.cookies.SetSession(c, session.AccessToken, session.RefreshToken)
		accessToken = session.AccessToken
		u := session.User
		user = &u
	}

	return &model.Identity{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.DisplayName(),
		IsAdmin:     m.isAdmin(ctx, user.Email),
		AccessToken: accessToken,
	}, nil
}

func (m *AuthMiddleware) impersonated(ctx context.Context, token string) (*model.Identity, error) {
	claims, err := m.impersonator.Verify(token)
	if err != nil {
		logger.FromContext(ctx).Info("impersonation token rejected", zap.Error(err))
		return nil, nil
	}
	return &model.Identity{
		Email:        claims.Email,
		Name:         claims.Name,
		IsAdmin:      m.isAdmin(ctx, claims.Email),
		Impersonated: true,
	}, nil
}

func (m *AuthMiddleware) isAdmin(ctx context.Context, email string) bool {
	ok, err := m.admins.IsAdmin(ctx, email)
	if err != nil {
		logger.FromContext(ctx).Warn("admin lookup failed", zap.String("email", email), zap.Error(err))
		return false
	}
	return ok
}

// Optional resolves the session when there is one and never rejects
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, _ = m.Resolve(c)
		return c.Next()
	}
}

// Required rejects requests without a valid session
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := m.Resolve(c)
		if errors.Is(err, ErrRecoverySession) {
			return response.Unauthorized(c, ErrRecoverySession.Error())
		}
		if id == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireAdmin lets only administrators through. It is mounted on the whole
// admin route group so no handler behind it runs for anyone else.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := m.Resolve(c)
		if id == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !id.IsAdmin {
			return response.Forbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

// GetIdentity returns the identity resolved for this request
func GetIdentity(c *fiber.Ctx) (*model.Identity, bool) {
	id, ok := c.Locals(identityKey).(*model.Identity)
	return id, ok && id != nil
}

// CallerToken returns the bearer credential to forward to the data service
// for the caller, or nothing for anonymous and impersonated requests.
func CallerToken(c *fiber.Ctx) []supabase.CallOption {
	if id, ok := GetIdentity(c); ok && id.AccessToken != "" {
		return []supabase.CallOption{supabase.WithToken(id.AccessToken)}
	}
	return nil
}
