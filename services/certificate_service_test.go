package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/storage"
	"github.com/cct-academy/course-portal/services/supabase/supabasetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var certNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newCertificateService(t *testing.T) (*CertificateService, *ProgressService, *supabasetest.Server) {
	client, srv := newStore(t)
	progress := NewProgressService(client, NewCatalogService(client))
	svc := NewCertificateService(client, storage.NewRESTStore(client, "certificate-templates", supabasetest.APIKey), progress)
	svc.now = fixedClock(certNow)
	return svc, progress, srv
}

func TestCertificate_UploadTemplateUpserts(t *testing.T) {
	svc, _, srv := newCertificateService(t)
	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\nrest-of-image")

	tpl, err := svc.UploadTemplate(ctx, TemplateUpload{
		CourseID:  4,
		ImageData: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		FileName:  "bg.png",
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/certificate-templates/4/bg.png", tpl.TemplateURL)

	stored, ok := srv.Object("certificate-templates", "4/bg.png")
	require.True(t, ok)
	assert.Equal(t, png, stored)

	_, err = svc.UploadTemplate(ctx, TemplateUpload{
		CourseID:  4,
		ImageData: base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		FileName:  "bg2.jpg",
	})
	require.NoError(t, err)

	rows := srv.Rows("certificate_templates")
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0]["template_url"], "4/bg2.jpg")

	got, err := svc.Template(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Contains(t, got.TemplateURL, "bg2.jpg")

	none, err := svc.Template(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCertificate_UploadTemplateRejectsBadInput(t *testing.T) {
	svc, _, srv := newCertificateService(t)
	ctx := context.Background()

	_, err := svc.UploadTemplate(ctx, TemplateUpload{CourseID: 1, ImageData: "not base64!!", FileName: "a.png"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.UploadTemplate(ctx, TemplateUpload{CourseID: 1, ImageData: "aGVsbG8=", FileName: "../escape.png"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	assert.Empty(t, srv.Requests())
}

func TestDecodeImage(t *testing.T) {
	data, ct, err := decodeImage("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, "image/jpeg", ct)

	_, ct, err = decodeImage(base64.RawStdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n....")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, _, err = decodeImage("data:image/png;base64")
	assert.Error(t, err)
}

func TestCertificate_GenerateRequiresFullCompletion(t *testing.T) {
	svc, progress, srv := newCertificateService(t)
	ctx := context.Background()
	lessons := seedCourse(srv, 1, 1, 2)
	caller := model.Identity{Email: "ana@example.com", Name: "Ana"}

	require.NoError(t, progress.Complete(ctx, ProgressInput{UserEmail: caller.Email, LessonID: lessons[0]}))

	_, _, err := svc.Generate(ctx, caller, 1)
	var incomplete *IncompleteCourseError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, float64(50), incomplete.Completion)
	assert.Empty(t, srv.Rows("certificates"))

	require.NoError(t, progress.Complete(ctx, ProgressInput{UserEmail: caller.Email, LessonID: lessons[1]}))

	cert, created, err := svc.Generate(ctx, caller, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ana", cert.UserName)
	assert.Equal(t, "Course", cert.CourseTitle)
	assert.Equal(t, "12", cert.Workload)
	assert.Len(t, cert.VerificationCode, verificationCodeLength)
	assert.True(t, cert.IssuedAt.Equal(certNow))

	again, created, err := svc.Generate(ctx, caller, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cert.ID, again.ID)
	assert.Len(t, srv.Rows("certificates"), 1)
}

func TestCertificate_GenerateLowercasesEmail(t *testing.T) {
	svc, progress, srv := newCertificateService(t)
	ctx := context.Background()
	lessons := seedCourse(srv, 1, 1, 1)

	require.NoError(t, progress.Complete(ctx, ProgressInput{UserEmail: "ana@example.com", LessonID: lessons[0]}))

	cert, created, err := svc.Generate(ctx, model.Identity{Email: "Ana@Example.COM", Name: "Ana"}, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ana@example.com", cert.UserEmail)

	_, created, err = svc.Generate(ctx, model.Identity{Email: "ana@example.com", Name: "Ana"}, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, srv.Rows("certificates"), 1)

	certs, err := svc.ListForUser(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}

func TestCertificate_DocumentListsModules(t *testing.T) {
	svc, _, srv := newCertificateService(t)
	ctx := context.Background()
	srv.Seed("modules",
		map[string]interface{}{"id": 11, "course_id": 1, "title": "Pointers", "order_index": 1},
		map[string]interface{}{"id": 10, "course_id": 1, "title": "Basics", "order_index": 0},
	)
	srv.Seed("certificates", map[string]interface{}{"id": 1, "user_email": "ana@example.com", "user_name": "Ana", "course_id": 1, "course_title": "Go", "verification_code": "ABCDEF0123456789"})

	doc, err := svc.Document(ctx, 1, model.Identity{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Basics", "Pointers"}, doc.Modules)
	assert.Equal(t, "Go", doc.CourseTitle)

	_, err = svc.Document(ctx, 1, model.Identity{Email: "bob@example.com"})
	assert.True(t, errors.Is(err, ErrForbidden))

	v, err := svc.Verify(ctx, "ABCDEF0123456789")
	require.NoError(t, err)
	assert.Equal(t, []string{"Basics", "Pointers"}, v.Modules)
}

func TestCertificate_GenerateErrors(t *testing.T) {
	svc, _, srv := newCertificateService(t)
	ctx := context.Background()
	caller := model.Identity{Email: "ana@example.com"}

	_, _, err := svc.Generate(ctx, caller, 77)
	assert.True(t, errors.Is(err, ErrNotFound))

	srv.Seed("courses", map[string]interface{}{"id": 2, "title": "Empty"})
	_, _, err = svc.Generate(ctx, caller, 2)
	assert.True(t, errors.Is(err, ErrNoLessons))
}

func TestCertificate_ListGetAndVerify(t *testing.T) {
	svc, _, srv := newCertificateService(t)
	ctx := context.Background()
	srv.Seed("certificate_templates", map[string]interface{}{"course_id": 1, "template_url": "https://cdn/1.png"})
	srv.Seed("certificates",
		map[string]interface{}{"id": 1, "user_email": "ana@example.com", "user_name": "Ana", "course_id": 1, "course_title": "Go", "issued_at": "2025-01-01T00:00:00Z", "verification_code": "ABCDEF0123456789", "verification_count": 2, "workload": "12"},
		map[string]interface{}{"id": 2, "user_email": "ana@example.com", "course_id": 2, "course_title": "Rust", "issued_at": "2025-02-01T00:00:00Z"},
		map[string]interface{}{"id": 3, "user_email": "bob@example.com", "course_id": 1, "course_title": "Go"},
	)

	certs, err := svc.ListForUser(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, "Rust", certs[0].CourseTitle)
	assert.Nil(t, certs[0].TemplateURL)
	require.NotNil(t, certs[1].TemplateURL)
	assert.Equal(t, "https://cdn/1.png", *certs[1].TemplateURL)

	got, err := svc.Get(ctx, 1, model.Identity{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/1.png", *got.TemplateURL)

	_, err = svc.Get(ctx, 1, model.Identity{Email: "bob@example.com"})
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = svc.Get(ctx, 1, model.Identity{Email: "boss@example.com", IsAdmin: true})
	assert.NoError(t, err)

	_, err = svc.Get(ctx, 99, model.Identity{Email: "ana@example.com"})
	assert.True(t, errors.Is(err, ErrNotFound))

	v, err := svc.Verify(ctx, "abcdef0123456789")
	require.NoError(t, err)
	assert.Equal(t, "Ana", v.StudentName)
	assert.Equal(t, 3, v.VerificationCount)

	v, err = svc.Verify(ctx, "ABCDEF0123456789")
	require.NoError(t, err)
	assert.Equal(t, 4, v.VerificationCount)

	_, err = svc.Verify(ctx, "NOPE")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCertificate_AdminCRUD(t *testing.T) {
	svc, _, srv := newCertificateService(t)
	ctx := context.Background()
	srv.Seed("courses", map[string]interface{}{"id": 1, "title": "Go"}, map[string]interface{}{"id": 2, "title": "Rust"})

	_, err := svc.AdminCreate(ctx, CertificateInput{UserEmail: "ana@example.com"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	cert, err := svc.AdminCreate(ctx, CertificateInput{UserEmail: "Ana@example.com", CourseID: int64Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Go", cert.CourseTitle)
	assert.Equal(t, defaultStudentName, cert.UserName)
	assert.Equal(t, "ana@example.com", cert.UserEmail)
	assert.NotEmpty(t, cert.VerificationCode)

	found, err := svc.AdminFind(ctx, "ana@example.com", "Go")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	updated, err := svc.AdminUpdate(ctx, cert.ID, CertificateInput{UserEmail: "ana@example.com", UserName: "Ana", CourseID: int64Ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, "Rust", updated.CourseTitle)
	assert.Equal(t, "Ana", updated.UserName)

	_, err = svc.AdminUpdate(ctx, 404, CertificateInput{UserEmail: "x@example.com", CourseTitle: "X"})
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := svc.AdminList(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.AdminDelete(ctx, cert.ID))
	_, err = svc.AdminGet(ctx, cert.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
