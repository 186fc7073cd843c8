package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the HTTP client timeout used when Config.Timeout is zero
	DefaultTimeout = 30 * time.Second

	restPrefix    = "/rest/v1/"
	authPrefix    = "/auth/v1/"
	storagePrefix = "/storage/v1/"

	singleObjectMediaType = "application/vnd.pgrst.object+json"
)

// Client talks to a hosted Supabase project: the PostgREST data API, the
// identity service and object storage. It holds no per-request state and is
// safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds configuration for the Supabase client
type Config struct {
	BaseURL    string // e.g. https://<project>.supabase.co
	APIKey     string // anon key for the server, service role key for tooling
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new Supabase API client
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// BaseURL returns the project URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CallOption customizes a single call.
type CallOption func(*callOptions)

type callOptions struct {
	token      string
	onConflict string
}

// WithToken forwards a caller-supplied bearer token instead of the API key.
func WithToken(token string) CallOption {
	return func(o *callOptions) {
		o.token = token
	}
}

// WithUpsert turns an insert into an upsert that merges rows conflicting on the given columns.
func WithUpsert(onConflict string) CallOption {
	return func(o *callOptions) {
		o.onConflict = onConflict
	}
}

func collectOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// request describes one HTTP exchange with the hosted service.
type request struct {
	method string
	path   string
	query  url.Values
	body   io.Reader
	header http.Header
}

func jsonBody(v interface{}) (io.Reader, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do performs the request and decodes a 2xx JSON body into result. Failures
// are returned as *Error carrying the remote status and body. There are no retries.
func (c *Client) do(ctx context.Context, r request, result interface{}, o callOptions) error {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range r.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Content-Type") == "" && r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("apikey", c.apiKey)
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, respBody)
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ErrNotFound matches single-row reads that returned no row.
var ErrNotFound = errors.New("row not found")

// Error is a non-2xx answer from the hosted service.
type Error struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match an empty single-object result.
func (e *Error) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	return e.Code == "PGRST116" || (e.Status == http.StatusNotAcceptable && e.Code == "")
}

// errorBody covers the error shapes of PostgREST, the identity service and storage.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Details          json.RawMessage `json:"details"`
	Hint             string          `json:"hint"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func parseError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	apiErr.Code = rawString(eb.Code)
	if eb.ErrorCode != "" {
		apiErr.Code = eb.ErrorCode
	}
	apiErr.Hint = eb.Hint
	apiErr.Details = rawString(eb.Details)

	for _, m := range []string{eb.Message, eb.Msg, eb.ErrorDescription, eb.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// rawString renders a JSON scalar that may be a string, a number or null.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// IsUpstreamClientError reports whether err is a 4xx answer from the hosted service.
func IsUpstreamClientError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500
	}
	return false
}
