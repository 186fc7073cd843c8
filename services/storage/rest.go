package storage

import (
	"context"
	"fmt"

	"github.com/cct-academy/course-portal/services/supabase"
)

type objectUploader interface {
	UploadObject(ctx context.Context, bucket, key string, data []byte, contentType string, opts ...supabase.CallOption) error
	PublicObjectURL(bucket, key string) string
}

// RESTStore stores objects through the Supabase storage API
type RESTStore struct {
	client objectUploader
	bucket string
	token  string
}

// NewRESTStore creates a store writing into bucket. token is sent as the bearer credential.
func NewRESTStore(client objectUploader, bucket, token string) *RESTStore {
	return &RESTStore{client: client, bucket: bucket, token: token}
}

// Upload implements ObjectStore
func (s *RESTStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var opts []supabase.CallOption
	if s.token != "" {
		opts = append(opts, supabase.WithToken(s.token))
	}
	if err := s.client.UploadObject(ctx, s.bucket, key, data, contentType, opts...); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.client.PublicObjectURL(s.bucket, key), nil
}
