package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/services/supabase/supabasetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("12", "template.png")
	require.NoError(t, err)
	assert.Equal(t, "12/template.png", key)

	for _, bad := range []string{"", "  ", "../x.png", "a/b.png", `a\b.png`, ".."} {
		_, err := ObjectKey("12", bad)
		assert.Error(t, err, bad)
	}
}

func TestRESTStore_Upload(t *testing.T) {
	srv := supabasetest.New(t)
	client := supabase.NewClient(supabase.Config{BaseURL: srv.URL, APIKey: supabasetest.APIKey})
	store := NewRESTStore(client, "certificate-templates", supabasetest.APIKey)

	url, err := store.Upload(context.Background(), "3/bg.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/certificate-templates/3/bg.jpg", url)

	data, ok := srv.Object("certificate-templates", "3/bg.jpg")
	require.True(t, ok)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "Bearer "+supabasetest.APIKey, srv.Requests()[0].Header.Get("Authorization"))
}

func TestRESTStore_UploadFailure(t *testing.T) {
	srv := supabasetest.New(t)
	srv.Fail("storage", http.StatusNotFound, "Bucket not found")
	client := supabase.NewClient(supabase.Config{BaseURL: srv.URL, APIKey: supabasetest.APIKey})

	_, err := NewRESTStore(client, "missing", "").Upload(context.Background(), "1/a.png", []byte("x"), "image/png")
	require.Error(t, err)

	var apiErr *supabase.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

type s3Stub struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.objects[r.URL.Path] = body
	s.types[r.URL.Path] = r.Header.Get("Content-Type")
	s.mu.Unlock()
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func TestS3Store_Upload(t *testing.T) {
	stub := &s3Stub{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	store, err := NewS3Store(S3Config{
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "templates",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
	})
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "7/bg.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/templates/7/bg.png", url)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, "png-bytes", string(stub.objects["/templates/7/bg.png"]))
	assert.Equal(t, "image/png", stub.types["/templates/7/bg.png"])
}

func TestNewS3Store_RequiresBucketAndEndpoint(t *testing.T) {
	_, err := NewS3Store(S3Config{Bucket: "b"})
	assert.Error(t, err)
}

func TestNew_PicksBackend(t *testing.T) {
	srv := supabasetest.New(t)
	client := supabase.NewClient(supabase.Config{BaseURL: srv.URL, APIKey: supabasetest.APIKey})

	cfg := &config.Config{}
	cfg.Storage.Bucket = "certificate-templates"
	store, err := New(cfg, client)
	require.NoError(t, err)
	assert.IsType(t, &RESTStore{}, store)

	cfg.Storage.S3Endpoint = "http://127.0.0.1:9000"
	cfg.Storage.S3AccessKey = "key"
	cfg.Storage.S3SecretKey = "secret"
	cfg.Storage.S3Region = "us-east-1"
	store, err = New(cfg, client)
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)
}
