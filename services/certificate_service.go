package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/storage"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/google/uuid"
)

const (
	defaultStudentName     = "Student"
	verificationCodeLength = 16
	maxTemplateBytes       = 10 << 20
)

// CertificateService issues, lists and verifies course certificates and
// stores their template images.
type CertificateService struct {
	store    database.Storage
	objects  storage.ObjectStore
	progress *ProgressService
	now      func() time.Time
}

// NewCertificateService creates a new certificate service
func NewCertificateService(store database.Storage, objects storage.ObjectStore, progress *ProgressService) *CertificateService {
	return &CertificateService{store: store, objects: objects, progress: progress, now: time.Now}
}

// TemplateUpload is a certificate background sent as base64 or a data URL
type TemplateUpload struct {
	CourseID  int64  `json:"course_id" validate:"required,min=1"`
	ImageData string `json:"image_data" validate:"required"`
	FileName  string `json:"file_name" validate:"required,max=255"`
}

// CertificateInput is an admin-managed certificate
type CertificateInput struct {
	UserEmail      string     `json:"user_email" validate:"required,email"`
	UserName       string     `json:"user_name" validate:"omitempty,max=255"`
	CourseID       *int64     `json:"course_id" validate:"omitempty,min=1"`
	CourseTitle    string     `json:"course_title" validate:"omitempty,max=255"`
	Workload       string     `json:"workload" validate:"omitempty,max=50"`
	IssuedAt       *time.Time `json:"issued_at"`
	CompletionDate *time.Time `json:"completion_date"`
}

// UploadTemplate stores the image under "<course_id>/<file_name>" and points
// the course's template row at it, creating the row on first upload.
func (s *CertificateService) UploadTemplate(ctx context.Context, in TemplateUpload, opts ...supabase.CallOption) (*model.CertificateTemplate, error) {
	data, contentType, err := decodeImage(in.ImageData)
	if err != nil {
		return nil, err
	}
	key, err := storage.ObjectKey(strconv.FormatInt(in.CourseID, 10), in.FileName)
	if err != nil {
		return nil, invalid("%v", err)
	}

	url, err := s.objects.Upload(ctx, key, data, contentType)
	if err != nil {
		return nil, err
	}

	upsert := append([]supabase.CallOption{supabase.WithUpsert("course_id")}, opts...)
	var rows []model.CertificateTemplate
	if err := s.store.Insert(ctx, database.TableCertificateTemplates, map[string]interface{}{
		"course_id":    in.CourseID,
		"template_url": url,
	}, &rows, upsert...); err != nil {
		return nil, fmt.Errorf("failed to save certificate template: %w", err)
	}
	if len(rows) == 0 {
		return &model.CertificateTemplate{CourseID: in.CourseID, TemplateURL: url}, nil
	}
	return &rows[0], nil
}

// decodeImage accepts "data:<type>;base64,<payload>" or bare base64
func decodeImage(s string) ([]byte, string, error) {
	payload := strings.TrimSpace(s)
	contentType := ""
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", invalid("malformed data URL")
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", invalid("image_data is not valid base64")
		}
	}
	if len(data) == 0 {
		return nil, "", invalid("image_data is empty")
	}
	if len(data) > maxTemplateBytes {
		return nil, "", invalid("image is larger than %d bytes", maxTemplateBytes)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// Template returns the template of a course, or nil when none was uploaded
func (s *CertificateService) Template(ctx context.Context, courseID int64) (*model.CertificateTemplate, error) {
	var rows []model.CertificateTemplate
	if err := s.store.Query(ctx, database.TableCertificateTemplates, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("course_id", courseID)),
		Limit:  1,
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch certificate template: %w", err)
	}
	return first(rows), nil
}

// Generate issues the caller's certificate for a course they fully completed.
// It returns the existing certificate, and false, when one was issued before.
func (s *CertificateService) Generate(ctx context.Context, caller model.Identity, courseID int64, opts ...supabase.CallOption) (*model.Certificate, bool, error) {
	email := normalizeEmail(caller.Email)

	var existing []model.Certificate
	if err := s.store.Query(ctx, database.TableCertificates, &supabase.Query{
		Filter: supabase.Match(
			supabase.Eq("user_email", email),
			supabase.Eq("course_id", courseID),
		),
		Limit: 1,
	}, &existing); err != nil {
		return nil, false, fmt.Errorf("failed to fetch certificates: %w", err)
	}
	if cert := first(existing); cert != nil {
		return cert, false, nil
	}

	course, err := s.progress.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return nil, false, err
	}

	completion, err := s.progress.Completion(ctx, email, courseID)
	if err != nil {
		return nil, false, err
	}
	if completion.TotalLessons == 0 {
		return nil, false, ErrNoLessons
	}
	if completion.CompletedLessons < completion.TotalLessons {
		return nil, false, &IncompleteCourseError{Completion: completion.Percentage}
	}

	name := strings.TrimSpace(caller.Name)
	if name == "" {
		name = defaultStudentName
	}
	now := s.now().UTC()

	var created []model.Certificate
	if err := s.store.Insert(ctx, database.TableCertificates, map[string]interface{}{
		"user_email":         email,
		"user_name":          name,
		"course_id":          course.ID,
		"course_title":       course.Title,
		"issued_at":          now,
		"completion_date":    now,
		"workload":           strconv.Itoa(course.DurationHours),
		"verification_code":  newVerificationCode(),
		"verification_count": 0,
	}, &created, opts...); err != nil {
		return nil, false, fmt.Errorf("failed to issue certificate: %w", err)
	}
	if len(created) == 0 {
		return nil, false, fmt.Errorf("failed to issue certificate: no row returned")
	}
	return &created[0], true, nil
}

func newVerificationCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return code[:verificationCodeLength]
}

// ListForUser returns the user's certificates, latest first, with template URLs
func (s *CertificateService) ListForUser(ctx context.Context, email string) ([]model.CertificateWithTemplate, error) {
	var certs []model.Certificate
	if err := s.store.Query(ctx, database.TableCertificates, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("user_email", normalizeEmail(email))),
		Order:  supabase.Desc("issued_at"),
	}, &certs); err != nil {
		return nil, fmt.Errorf("failed to fetch certificates: %w", err)
	}
	return s.withTemplates(ctx, certs)
}

func (s *CertificateService) withTemplates(ctx context.Context, certs []model.Certificate) ([]model.CertificateWithTemplate, error) {
	out := make([]model.CertificateWithTemplate, len(certs))
	courseIDs := []int64{}
	seen := map[int64]bool{}
	for i, c := range certs {
		out[i] = model.CertificateWithTemplate{Certificate: c}
		if c.CourseID != nil && !seen[*c.CourseID] {
			seen[*c.CourseID] = true
			courseIDs = append(courseIDs, *c.CourseID)
		}
	}
	if len(courseIDs) == 0 {
		return out, nil
	}

	var templates []model.CertificateTemplate
	if err := s.store.Query(ctx, database.TableCertificateTemplates, &supabase.Query{
		Select: "course_id,template_url",
		Filter: supabase.Match(supabase.In("course_id", supabase.Values(courseIDs)...)),
	}, &templates); err != nil {
		return nil, fmt.Errorf("failed to fetch certificate templates: %w", err)
	}

	urls := make(map[int64]string, len(templates))
	for _, t := range templates {
		urls[t.CourseID] = t.TemplateURL
	}
	for i := range out {
		if out[i].CourseID == nil {
			continue
		}
		if url, ok := urls[*out[i].CourseID]; ok {
			u := url
			out[i].TemplateURL = &u
		}
	}
	return out, nil
}

// Get returns one certificate with its template URL. Only the owner and
// admins may read it.
func (s *CertificateService) Get(ctx context.Context, id int64, caller model.Identity) (*model.CertificateWithTemplate, error) {
	cert, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && !strings.EqualFold(cert.UserEmail, caller.Email) {
		return nil, ErrForbidden
	}
	out, err := s.withTemplates(ctx, []model.Certificate{*cert})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *CertificateService) find(ctx context.Context, id int64) (*model.Certificate, error) {
	var cert model.Certificate
	if err := s.store.Query(ctx, database.TableCertificates, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("id", id)),
		Single: true,
	}, &cert); err != nil {
		return nil, fmt.Errorf("failed to fetch certificate %d: %w", id, err)
	}
	return &cert, nil
}

// Verify looks a certificate up by its public code and counts the lookup
func (s *CertificateService) Verify(ctx context.Context, code string) (*model.CertificateVerification, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, notFound("certificate", code)
	}

	var cert model.Certificate
	if err := s.store.Query(ctx, database.TableCertificates, &supabase.Query{
		Filter: supabase.Match(supabase.Eq("verification_code", code)),
		Single: true,
	}, &cert); err != nil {
		return nil, fmt.Errorf("failed to verify certificate: %w", err)
	}

	count := cert.VerificationCount + 1
	if err := s.store.Update(ctx, database.TableCertificates,
		supabase.Match(supabase.Eq("id", cert.ID)),
		map[string]interface{}{"verification_count": count},
		nil); err != nil {
		return nil, fmt.Errorf("failed to record verification: %w", err)
	}

	return &model.CertificateVerification{
		StudentName:       cert.UserName,
		CourseTitle:       cert.CourseTitle,
		Workload:          cert.Workload,
		CompletionDate:    cert.CompletionDate,
		IssuedAt:          cert.IssuedAt,
		VerificationCode:  cert.VerificationCode,
		VerificationCount: count,
		Modules:           s.moduleTitles(ctx, cert.CourseID),
	}, nil
}

// Document returns a certificate with what its printable page lists. The
// access rules are those of Get.
func (s *CertificateService) Document(ctx context.Context, id int64, caller model.Identity) (*model.CertificateDocument, error) {
	cert, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return &model.CertificateDocument{
		CertificateWithTemplate: *cert,
		Modules:                 s.moduleTitles(ctx, cert.CourseID),
	}, nil
}

// moduleTitles lists the course's module titles in order. A failed lookup
// yields no titles; the certificate is still valid without them.
func (s *CertificateService) moduleTitles(ctx context.Context, courseID *int64) []string {
	if courseID == nil {
		return nil
	}
	var modules []model.Module
	if err := s.store.Query(ctx, database.TableModules, &supabase.Query{
		Select: "title,order_index",
		Filter: supabase.Match(supabase.Eq("course_id", *courseID)),
		Order:  supabase.Asc("order_index"),
	}, &modules); err != nil {
		return nil
	}
	titles := make([]string, 0, len(modules))
	for _, m := range modules {
		titles = append(titles, m.Title)
	}
	return titles
}

// AdminList returns every certificate newest first
func (s *CertificateService) AdminList(ctx context.Context) ([]model.Certificate, error) {
	certs := []model.Certificate{}
	if err := s.store.Query(ctx, database.TableCertificates, &supabase.Query{
		Order: supabase.Desc("created_at"),
	}, &certs); err != nil {
		return nil, fmt.Errorf("failed to fetch certificates: %w", err)
	}
	return certs, nil
}

// AdminGet returns one certificate
func (s *CertificateService) AdminGet(ctx context.Context, id int64) (*model.Certificate, error) {
	return s.find(ctx, id)
}

// AdminFind lists certificates of email for a course title
func (s *CertificateService) AdminFind(ctx context.Context, email, courseTitle string) ([]model.Certificate, error) {
	certs := []model.Certificate{}
	if err := s.store.Query(ctx, database.TableCertificates, &supabase.Query{
		Filter: supabase.Match(
			supabase.Eq("user_email", email),
			supabase.Eq("course_title", courseTitle),
		),
	}, &certs); err != nil {
		return nil, fmt.Errorf("failed to find certificates: %w", err)
	}
	return certs, nil
}

// AdminCreate issues a certificate directly. course_title is resolved from
// course_id when only the id is given.
func (s *CertificateService) AdminCreate(ctx context.Context, in CertificateInput, opts ...supabase.CallOption) (*model.Certificate, error) {
	title, err := s.courseTitle(ctx, in)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, invalid("course_title or course_id is required")
	}

	now := s.now().UTC()
	issued, completed := now, now
	if in.IssuedAt != nil {
		issued = in.IssuedAt.UTC()
	}
	if in.CompletionDate != nil {
		completed = in.CompletionDate.UTC()
	}
	name := strings.TrimSpace(in.UserName)
	if name == "" {
		name = defaultStudentName
	}

	var created []model.Certificate
	if err := s.store.Insert(ctx, database.TableCertificates, map[string]interface{}{
		"user_email":         normalizeEmail(in.UserEmail),
		"user_name":          name,
		"course_id":          in.CourseID,
		"course_title":       title,
		"issued_at":          issued,
		"completion_date":    completed,
		"workload":           nullable(in.Workload),
		"verification_code":  newVerificationCode(),
		"verification_count": 0,
	}, &created, opts...); err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to create certificate: no row returned")
	}
	return &created[0], nil
}

// AdminUpdate rewrites the holder and course of a certificate
func (s *CertificateService) AdminUpdate(ctx context.Context, id int64, in CertificateInput, opts ...supabase.CallOption) (*model.Certificate, error) {
	title, err := s.courseTitle(ctx, in)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{
		"user_email": normalizeEmail(in.UserEmail),
		"course_id":  in.CourseID,
		"workload":   nullable(in.Workload),
	}
	if name := strings.TrimSpace(in.UserName); name != "" {
		patch["user_name"] = name
	}
	if title != "" {
		patch["course_title"] = title
	}

	var updated []model.Certificate
	if err := s.store.Update(ctx, database.TableCertificates, supabase.Match(supabase.Eq("id", id)), patch, &updated, opts...); err != nil {
		return nil, fmt.Errorf("failed to update certificate %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, notFound("certificate", id)
	}
	return &updated[0], nil
}

// AdminDelete removes a certificate
func (s *CertificateService) AdminDelete(ctx context.Context, id int64, opts ...supabase.CallOption) error {
	if err := s.store.Delete(ctx, database.TableCertificates, supabase.Match(supabase.Eq("id", id)), opts...); err != nil {
		return fmt.Errorf("failed to delete certificate %d: %w", id, err)
	}
	return nil
}

func (s *CertificateService) courseTitle(ctx context.Context, in CertificateInput) (string, error) {
	if in.CourseID == nil {
		return strings.TrimSpace(in.CourseTitle), nil
	}
	course, err := s.progress.catalog.GetCourse(ctx, *in.CourseID)
	if err != nil {
		return "", err
	}
	return course.Title, nil
}
