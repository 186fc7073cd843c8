package auth

import (
	"errors"
	"net/url"

	authutil "github.com/cct-academy/course-portal/utils/auth"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/gofiber/fiber/v2"
)

// CallbackRequest carries the tokens the browser read from a link fragment
type CallbackRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Callback handles GET /auth/callback, the landing page of confirmation and
// recovery links. Recovery tokens are forwarded to the reset page and never
// become a session.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if code := c.Query("error_code"); code != "" {
		return c.Redirect("/?error="+url.QueryEscape(code), fiber.StatusFound)
	}

	accessToken := c.Query("access_token")
	refreshToken := c.Query("refresh_token")
	if accessToken == "" {
		return c.Redirect("/?error=no_token", fiber.StatusFound)
	}

	recovery := c.Query("type") == "recovery"
	if claims, err := authutil.InspectAccessToken(accessToken); err == nil && claims.IsRecovery() {
		recovery = true
	}
	if recovery {
		fragment := url.Values{}
		fragment.Set("access_token", accessToken)
		fragment.Set("refresh_token", refreshToken)
		fragment.Set("type", "recovery")
		return c.Redirect("/reset-password#"+fragment.Encode(), fiber.StatusFound)
	}

	h.cookies.SetSession(c, accessToken, refreshToken)
	return c.Redirect("/?auth=success", fiber.StatusFound)
}

// CallbackSession handles POST /api/auth/callback
func (h *AuthHandler) CallbackSession(c *fiber.Ctx) error {
	var req CallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.AccessToken == "" {
		return response.BadRequest(c, "No access token")
	}
	if claims, err := authutil.InspectAccessToken(req.AccessToken); err == nil && claims.IsRecovery() {
		return response.Unauthorized(c, middleware.ErrRecoverySession.Error())
	}

	h.cookies.SetSession(c, req.AccessToken, req.RefreshToken)
	return c.JSON(fiber.Map{"success": true})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	id, err := h.auth.Resolve(c)
	if errors.Is(err, middleware.ErrRecoverySession) {
		h.cookies.Clear(c)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"user":    nil,
			"error":   middleware.ErrRecoverySession.Error(),
			"message": "Please reset your password before signing in",
		})
	}
	if id == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"user":  nil,
			"error": "Not authenticated",
		})
	}
	return c.JSON(fiber.Map{"user": id})
}
