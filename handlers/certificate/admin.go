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

// UploadTemplate handles POST /api/admin/certificate-template
func (h *CertificateHandler) UploadTemplate(c *fiber.Ctx) error {
	var req services.TemplateUpload
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	template, err := h.certificates.UploadTemplate(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to upload template")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"template":     template,
		"template_url": template.TemplateURL,
		"message":      "Template uploaded successfully",
	})
}

// AdminList handles GET /api/admin/certificates
func (h *CertificateHandler) AdminList(c *fiber.Ctx) error {
	certs, err := h.certificates.AdminList(c.UserContext())
	if err != nil {
		return handlers.Upstream(c, err, "Failed to list certificates")
	}
	return c.JSON(fiber.Map{"certificates": certs})
}

// AdminGet handles GET /api/admin/certificates/:id
func (h *CertificateHandler) AdminGet(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid certificate ID")
	}

	cert, err := h.certificates.AdminGet(c.UserContext(), id)
	if err != nil {
		return handlers.Upstream(c, err, "Certificate not found")
	}
	return c.JSON(fiber.Map{"certificate": cert})
}

// AdminFind handles GET /api/admin/certificates/find?email=&course=
func (h *CertificateHandler) AdminFind(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	course := strings.TrimSpace(c.Query("course"))
	if email == "" || course == "" {
		return response.BadRequest(c, "email and course are required")
	}

	certs, err := h.certificates.AdminFind(c.UserContext(), email, course)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to find certificates")
	}
	return c.JSON(fiber.Map{"certificates": certs})
}

// AdminCreate handles POST /api/admin/certificates
func (h *CertificateHandler) AdminCreate(c *fiber.Ctx) error {
	var req services.CertificateInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	cert, err := h.certificates.AdminCreate(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to create certificate")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":        true,
		"certificate_id": cert.ID,
		"certificate":    cert,
	})
}

// AdminUpdate handles PUT /api/admin/certificates/:id
func (h *CertificateHandler) AdminUpdate(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid certificate ID")
	}

	var req services.CertificateInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	cert, err := h.certificates.AdminUpdate(c.UserContext(), id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Certificate not found")
	}
	return c.JSON(fiber.Map{"success": true, "certificate": cert})
}

// AdminDelete handles DELETE /api/admin/certificates/:id
func (h *CertificateHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid certificate ID")
	}

	if err := h.certificates.AdminDelete(c.UserContext(), id, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to delete certificate")
	}
	return c.JSON(fiber.Map{"success": true})
}
