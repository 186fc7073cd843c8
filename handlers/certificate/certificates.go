package certificate

import (
	"strings"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// CertificateHandler handles certificate issuing, lookup and templates
type CertificateHandler struct {
	certificates *services.CertificateService
	validator    *validation.Validator
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(certificates *services.CertificateService) *CertificateHandler {
	return &CertificateHandler{
		certificates: certificates,
		validator:    validation.NewValidator(),
	}
}

// GenerateRequest names the course to issue a certificate for
type GenerateRequest struct {
	CourseID int64 `json:"course_id" validate:"required,min=1"`
}

// Generate handles POST /api/certificates/generate
func (h *CertificateHandler) Generate(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	cert, created, err := h.certificates.Generate(c.UserContext(), *id, req.CourseID, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to generate certificate")
	}

	if !created {
		return c.JSON(fiber.Map{
			"success":     true,
			"certificate": cert,
			"message":     "Certificate already issued",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"certificate": cert,
		"message":     "Certificate issued successfully",
	})
}

// List handles GET /api/certificates
func (h *CertificateHandler) List(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	certs, err := h.certificates.ListForUser(c.UserContext(), id.Email)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch certificates")
	}
	return c.JSON(fiber.Map{"certificates": certs})
}

// Get handles GET /api/certificates/:id
func (h *CertificateHandler) Get(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	certID, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid certificate ID")
	}

	cert, err := h.certificates.Get(c.UserContext(), certID, *id)
	if err != nil {
		return handlers.Upstream(c, err, "Certificate not found")
	}
	return c.JSON(fiber.Map{"certificate": cert})
}

// Verify handles GET /api/verify/:code. It is public and counts every lookup.
func (h *CertificateHandler) Verify(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	if code == "" {
		return response.BadRequest(c, "Verification code is required")
	}

	verification, err := h.certificates.Verify(c.UserContext(), code)
	if err != nil {
		return handlers.Upstream(c, err, "Certificate not found")
	}
	return c.JSON(fiber.Map{"valid": true, "certificate": verification})
}

// Template handles GET /api/certificate-template/:courseId. A course without
// a template answers with null.
func (h *CertificateHandler) Template(c *fiber.Ctx) error {
	courseID, err := handlers.ParamID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	template, err := h.certificates.Template(c.UserContext(), courseID)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch template")
	}
	return c.JSON(fiber.Map{"template": template})
}
