package supabase

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
)

// UploadObject stores data at key inside bucket, replacing any existing object.
func (c *Client) UploadObject(ctx context.Context, bucket, key string, data []byte, contentType string, opts ...CallOption) error {
	header := http.Header{}
	header.Set("Content-Type", contentType)
	header.Set("x-upsert", "true")

	return c.do(ctx, request{
		method: http.MethodPost,
		path:   storagePrefix + "object/" + objectPath(bucket, key),
		body:   bytes.NewReader(data),
		header: header,
	}, nil, collectOptions(opts))
}

// PublicObjectURL is the unauthenticated URL of an object in a public bucket.
func (c *Client) PublicObjectURL(bucket, key string) string {
	return c.baseURL + storagePrefix + "object/public/" + objectPath(bucket, key)
}

func objectPath(bucket, key string) string {
	segments := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
