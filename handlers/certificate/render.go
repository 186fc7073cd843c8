package certificate

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/gofiber/fiber/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"date": formatDate,
}).ParseFS(templateFS, "templates/*.html"))

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

// certificateView is the data of the printable certificate page
type certificateView struct {
	StudentName      string
	CourseTitle      string
	Workload         string
	CompletionDate   time.Time
	IssuedAt         time.Time
	VerificationCode string
	VerificationURL  string
	TemplateURL      string
	Modules          []string
}

// Render handles GET /api/certificates/:id/html
func (h *CertificateHandler) Render(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	certID, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid certificate ID")
	}

	doc, err := h.certificates.Document(c.UserContext(), certID, *id)
	if err != nil {
		return handlers.Upstream(c, err, "Certificate not found")
	}

	view := certificateView{
		StudentName:      doc.UserName,
		CourseTitle:      doc.CourseTitle,
		Workload:         doc.Workload,
		CompletionDate:   doc.CompletionDate,
		IssuedAt:         doc.IssuedAt,
		VerificationCode: doc.VerificationCode,
		VerificationURL:  c.BaseURL() + "/verificar/" + doc.VerificationCode,
		Modules:          doc.Modules,
	}
	if view.Workload == "" {
		view.Workload = "N/A"
	}
	if doc.TemplateURL != nil {
		view.TemplateURL = *doc.TemplateURL
	}
	return renderPage(c, fiber.StatusOK, "certificate.html", view)
}

// VerifyPage handles GET /verificar/:code, the page printed certificates link to
func (h *CertificateHandler) VerifyPage(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))

	verification, err := h.certificates.Verify(c.UserContext(), code)
	if errors.Is(err, services.ErrNotFound) {
		return renderPage(c, fiber.StatusNotFound, "not_found.html", fiber.Map{"Code": code})
	}
	if err != nil {
		return handlers.Upstream(c, err, "Failed to verify certificate")
	}
	return renderPage(c, fiber.StatusOK, "verification.html", verification)
}

func renderPage(c *fiber.Ctx, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
