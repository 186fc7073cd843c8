package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Session cookie names shared with the browser client
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"

	AccessTokenMaxAge  = time.Hour
	RefreshTokenMaxAge = 7 * 24 * time.Hour
)

// Cookies writes and clears the session cookies
type Cookies struct {
	Secure bool
}

// SetSession stores both tokens. An empty refresh token leaves the refresh cookie as it is.
func (k Cookies) SetSession(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(k.cookie(AccessTokenCookie, accessToken, AccessTokenMaxAge))
	if refreshToken != "" {
		c.Cookie(k.cookie(RefreshTokenCookie, refreshToken, RefreshTokenMaxAge))
	}
}

// Clear expires both cookies
func (k Cookies) Clear(c *fiber.Ctx) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie := k.cookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		c.Cookie(cookie)
	}
}

func (k Cookies) cookie(name, value string, maxAge time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   k.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// Tokens reads the session cookies of a request
func Tokens(c *fiber.Ctx) (accessToken, refreshToken string) {
	return c.Cookies(AccessTokenCookie), c.Cookies(RefreshTokenCookie)
}
