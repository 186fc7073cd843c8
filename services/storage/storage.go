// Package storage keeps certificate template images in an object store and
// hands back the public URL they are served from.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/services/supabase"
)

// ObjectStore uploads objects, replacing existing ones, and returns their public URL
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New picks the S3 compatible store when credentials are configured and the
// Supabase storage API otherwise.
func New(cfg *config.Config, client *supabase.Client) (ObjectStore, error) {
	if cfg.Storage.UseS3() {
		return NewS3Store(S3Config{
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
		})
	}
	return NewRESTStore(client, cfg.Storage.Bucket, cfg.Supabase.AnonKey), nil
}

// ObjectKey builds "<prefix>/<file name>" and rejects names that would escape the prefix.
func ObjectKey(prefix, fileName string) (string, error) {
	name := strings.TrimSpace(fileName)
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	return path.Join(prefix, name), nil
}
