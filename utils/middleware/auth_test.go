package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/services/supabase/supabasetest"
	"github.com/cct-academy/course-portal/utils/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const impersonationSecret = "0123456789abcdef0123456789abcdef"

type bridge struct {
	srv          *supabasetest.Server
	app          *fiber.App
	impersonator *auth.Impersonator
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	srv := supabasetest.New(t)
	client := supabase.NewClient(supabase.Config{BaseURL: srv.URL, APIKey: supabasetest.APIKey})
	imp := auth.NewImpersonator(auth.ImpersonationConfig{Secret: impersonationSecret})
	m := NewAuthMiddleware(client, services.NewUserService(client), imp, auth.Cookies{})

	app := fiber.New()
	whoami := func(c *fiber.Ctx) error {
		id, ok := GetIdentity(c)
		if !ok {
			return c.JSON(fiber.Map{"email": nil})
		}
		return c.JSON(fiber.Map{"email": id.Email, "name": id.Name, "admin": id.IsAdmin, "impersonated": id.Impersonated})
	}
	app.Get("/optional", m.Optional(), whoami)
	app.Get("/required", m.Required(), whoami)
	admin := app.Group("/admin", m.RequireAdmin())
	admin.Get("/ping", whoami)

	srv.AddUser("ana@example.com", "secret1", "Ana")
	srv.AddUser("boss@example.com", "secret2", "Boss")
	srv.Seed("admins", map[string]interface{}{"email": "boss@example.com"})
	return &bridge{srv: srv, app: app, impersonator: imp}
}

func (b *bridge) get(t *testing.T, path, access, refresh string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if access != "" {
		req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: access})
	}
	if refresh != "" {
		req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: refresh})
	}
	resp, err := b.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp, body
}

func TestAnonymousRequests(t *testing.T) {
	b := newBridge(t)

	resp, body := b.get(t, "/optional", "", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Nil(t, body["email"])

	resp, body = b.get(t, "/required", "", "")
	assert.Equal(t, 401, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body["error"])

	before := len(b.srv.Requests())
	resp, _ = b.get(t, "/admin/ping", "", "")
	assert.Equal(t, 401, resp.StatusCode)
	assert.Len(t, b.srv.Requests(), before)
}

func TestSessionResolves(t *testing.T) {
	b := newBridge(t)
	access, _ := b.srv.IssueTokens("ana@example.com", supabasetest.TokenOptions{})

	resp, body := b.get(t, "/required", access, "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, false, body["admin"])
}

func TestRequireAdmin(t *testing.T) {
	b := newBridge(t)

	user, _ := b.srv.IssueTokens("ana@example.com", supabasetest.TokenOptions{})
	resp, body := b.get(t, "/admin/ping", user, "")
	assert.Equal(t, 403, resp.StatusCode)
	assert.Equal(t, "Admin access required", body["error"])
	assert.Zero(t, b.srv.Mutations())

	admin, _ := b.srv.IssueTokens("boss@example.com", supabasetest.TokenOptions{})
	resp, body = b.get(t, "/admin/ping", admin, "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, body["admin"])
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	b := newBridge(t)
	access, refresh := b.srv.IssueTokens("ana@example.com", supabasetest.TokenOptions{TTL: -time.Minute})

	resp, body := b.get(t, "/required", access, refresh)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ana@example.com", body["email"])

	var names []string
	for _, h := range resp.Header.Values("Set-Cookie") {
		name, _, _ := strings.Cut(h, "=")
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{auth.AccessTokenCookie, auth.RefreshTokenCookie}, names)
}

func TestExpiredTokenWithBadRefreshClearsCookies(t *testing.T) {
	b := newBridge(t)
	access, _ := b.srv.IssueTokens("ana@example.com", supabasetest.TokenOptions{TTL: -time.Minute})

	resp, _ := b.get(t, "/required", access, "unknown-refresh-token")
	assert.Equal(t, 401, resp.StatusCode)
	assert.Len(t, resp.Header.Values("Set-Cookie"), 2)
}

func TestRecoveryTokenIsNotASession(t *testing.T) {
	b := newBridge(t)
	access, _ := b.srv.IssueTokens("ana@example.com", supabasetest.TokenOptions{Recovery: true})

	resp, body := b.get(t, "/required", access, "")
	assert.Equal(t, 401, resp.StatusCode)
	assert.Equal(t, "password_reset_required", body["error"])

	_, body = b.get(t, "/optional", access, "")
	assert.Nil(t, body["email"])
}

func TestImpersonationToken(t *testing.T) {
	b := newBridge(t)
	token, _, err := b.impersonator.Issue("ana@example.com", "Ana", "boss@example.com")
	require.NoError(t, err)

	resp, body := b.get(t, "/required", token, "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Equal(t, true, body["impersonated"])

	resp, _ = b.get(t, "/admin/ping", token, "")
	assert.Equal(t, 403, resp.StatusCode)

	forged := auth.NewImpersonator(auth.ImpersonationConfig{Secret: strings.Repeat("z", 32)})
	bad, _, err := forged.Issue("boss@example.com", "Boss", "mallory@example.com")
	require.NoError(t, err)
	resp, _ = b.get(t, "/admin/ping", bad, "")
	assert.Equal(t, 401, resp.StatusCode)
}
