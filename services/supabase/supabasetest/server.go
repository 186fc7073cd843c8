// Package supabasetest runs an in-process stand-in for a hosted Supabase
// project: a PostgREST subset over in-memory tables, the identity endpoints
// the application uses and object uploads.
package supabasetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	// APIKey is the key clients must send in the apikey header.
	APIKey = "test-anon-key"
	// JWTSecret signs the access tokens issued by the fake identity service.
	JWTSecret = "supabasetest-jwt-secret"
)

type row = map[string]interface{}

// RPCFunc implements a database function. It returns the JSON result and status.
type RPCFunc func(params map[string]interface{}) (interface{}, int)

// Request records one call received by the server.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

type failure struct {
	status int
	body   string
}

// Server is a fake Supabase project. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	// RequireEmailConfirm makes signup return a bare user without a session.
	RequireEmailConfirm bool

	mu       sync.Mutex
	tables   map[string][]row
	nextID   map[string]int64
	rpcs     map[string]RPCFunc
	accounts map[string]*account
	refresh  map[string]string
	objects  map[string][]byte
	recover  []string
	failures map[string]failure
	requests []Request
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		tables:   map[string][]row{},
		nextID:   map[string]int64{},
		rpcs:     map[string]RPCFunc{},
		accounts: map[string]*account{},
		refresh:  map[string]string{},
		objects:  map[string][]byte{},
		failures: map[string]failure{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Seed inserts rows into table, assigning ids to rows without one.
func (s *Server) Seed(table string, rows ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.insertLocked(table, normalize(r))
	}
}

// Rows returns a copy of table's rows in insertion order.
func (s *Server) Rows(table string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

// HandleRPC registers a database function.
func (s *Server) HandleRPC(name string, fn RPCFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpcs[name] = fn
}

// Fail makes every request to target answer with status and a PostgREST
// style error body. target is a table name, "rpc/<fn>", "auth" or "storage".
func (s *Server) Fail(target string, status int, message string) {
	body, _ := json.Marshal(map[string]interface{}{
		"code":    "TEST" + strconv.Itoa(status),
		"message": message,
		"details": "injected by supabasetest",
		"hint":    nil,
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[target] = failure{status: status, body: string(body)}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RESTCalls counts requests to the data API, optionally restricted to methods.
func (s *Server) RESTCalls(methods ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if !strings.HasPrefix(r.Path, "/rest/v1/") {
			continue
		}
		if len(methods) == 0 {
			n++
			continue
		}
		for _, m := range methods {
			if r.Method == m {
				n++
				break
			}
		}
	}
	return n
}

// Mutations counts writes to the data API.
func (s *Server) Mutations() int {
	return s.RESTCalls(http.MethodPost, http.MethodPatch, http.MethodDelete)
}

// Object returns an uploaded object.
func (s *Server) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	return data, ok
}

// RecoveryEmails lists addresses that requested a password reset.
func (s *Server) RecoveryEmails() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recover...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     string(body),
	})
	s.mu.Unlock()

	if r.Header.Get("apikey") != APIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
		return
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/rest/v1/rpc/"):
		name := strings.TrimPrefix(path, "/rest/v1/rpc/")
		if s.injected(w, "rpc/"+name) {
			return
		}
		s.serveRPC(w, name, body)
	case path == "/rest/v1/" || path == "/rest/v1":
		writeJSON(w, http.StatusOK, map[string]string{"swagger": "2.0"})
	case strings.HasPrefix(path, "/rest/v1/"):
		table := strings.TrimPrefix(path, "/rest/v1/")
		if s.injected(w, table) {
			return
		}
		s.serveTable(w, r, table, body)
	case strings.HasPrefix(path, "/auth/v1/"):
		if s.injected(w, "auth") {
			return
		}
		s.serveAuth(w, r, strings.TrimPrefix(path, "/auth/v1/"), body)
	case strings.HasPrefix(path, "/storage/v1/object/"):
		if s.injected(w, "storage") {
			return
		}
		s.serveStorage(w, r, strings.TrimPrefix(path, "/storage/v1/object/"), body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (s *Server) injected(w http.ResponseWriter, target string) bool {
	s.mu.Lock()
	f, ok := s.failures[target]
	s.mu.Unlock()
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
	return true
}

func (s *Server) serveRPC(w http.ResponseWriter, name string, body []byte) {
	s.mu.Lock()
	fn, ok := s.rpcs[name]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"code":    "PGRST202",
			"message": "Could not find the function public." + name,
		})
		return
	}

	params := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "PGRST102", "message": "Invalid body"})
			return
		}
	}
	result, status := fn(params)
	writeJSON(w, status, result)
}

func (s *Server) serveTable(w http.ResponseWriter, r *http.Request, table string, body []byte) {
	query := r.URL.Query()

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		rows := selectRows(s.tables[table], query)
		s.mu.Unlock()

		if strings.Contains(r.Header.Get("Accept"), "vnd.pgrst.object") {
			if len(rows) != 1 {
				writeJSON(w, http.StatusNotAcceptable, map[string]interface{}{
					"code":    "PGRST116",
					"message": "JSON object requested, multiple (or no) rows returned",
					"details": "The result contains " + strconv.Itoa(len(rows)) + " rows",
					"hint":    nil,
				})
				return
			}
			writeJSON(w, http.StatusOK, rows[0])
			return
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var payload interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "PGRST102", "message": "Empty or invalid json"})
			return
		}
		var incoming []row
		switch p := payload.(type) {
		case map[string]interface{}:
			incoming = []row{p}
		case []interface{}:
			for _, item := range p {
				if m, ok := item.(map[string]interface{}); ok {
					incoming = append(incoming, m)
				}
			}
		}

		conflict := splitList(query.Get("on_conflict"))
		s.mu.Lock()
		created := make([]row, 0, len(incoming))
		for _, in := range incoming {
			if len(conflict) > 0 {
				if existing := findConflict(s.tables[table], in, conflict); existing != nil {
					for k, v := range in {
						existing[k] = v
					}
					created = append(created, copyRow(existing))
					continue
				}
			}
			created = append(created, copyRow(s.insertLocked(table, in)))
		}
		s.mu.Unlock()

		if strings.Contains(r.Header.Get("Prefer"), "return=representation") {
			writeJSON(w, http.StatusCreated, created)
			return
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodPatch:
		var patch row
		if err := json.Unmarshal(body, &patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "PGRST102", "message": "Empty or invalid json"})
			return
		}
		s.mu.Lock()
		updated := []row{}
		for _, existing := range s.tables[table] {
			if matchesAll(existing, query) {
				for k, v := range patch {
					existing[k] = v
				}
				updated = append(updated, copyRow(existing))
			}
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		s.mu.Lock()
		kept := s.tables[table][:0]
		for _, existing := range s.tables[table] {
			if !matchesAll(existing, query) {
				kept = append(kept, existing)
			}
		}
		s.tables[table] = kept
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) insertLocked(table string, in row) row {
	r := copyRow(in)
	if _, ok := r["id"]; !ok {
		s.nextID[table]++
		r["id"] = float64(s.nextID[table])
	} else if id, ok := r["id"].(float64); ok && int64(id) > s.nextID[table] {
		s.nextID[table] = int64(id)
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	s.tables[table] = append(s.tables[table], r)
	return r
}

func (s *Server) serveStorage(w http.ResponseWriter, r *http.Request, objectPath string, body []byte) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	_, exists := s.objects[objectPath]
	if exists && r.Header.Get("x-upsert") != "true" {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"statusCode": "409", "error": "Duplicate", "message": "The resource already exists"})
		return
	}
	s.objects[objectPath] = append([]byte(nil), body...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"Key": objectPath})
}

func selectRows(all []row, query map[string][]string) []row {
	rows := []row{}
	for _, r := range all {
		if matchesAll(r, query) {
			rows = append(rows, r)
		}
	}

	if order := query["order"]; len(order) > 0 {
		terms := splitList(order[0])
		sort.SliceStable(rows, func(i, j int) bool {
			for _, term := range terms {
				parts := strings.Split(term, ".")
				c := compareValues(rows[i][parts[0]], rows[j][parts[0]])
				if c == 0 {
					continue
				}
				if len(parts) > 1 && parts[1] == "desc" {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if limit, err := strconv.Atoi(firstValue(query["limit"])); err == nil && limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	columns := splitList(firstValue(query["select"]))
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		out = append(out, project(r, columns))
	}
	return out
}

func project(r row, columns []string) row {
	if len(columns) == 0 {
		return copyRow(r)
	}
	out := row{}
	for _, col := range columns {
		if col == "*" {
			for k, v := range r {
				out[k] = v
			}
			continue
		}
		if v, ok := r[col]; ok {
			out[col] = v
		}
	}
	return out
}

func findConflict(rows []row, in row, columns []string) row {
	for _, existing := range rows {
		match := true
		for _, col := range columns {
			if compareValues(existing[col], in[col]) != 0 {
				match = false
				break
			}
		}
		if match {
			return existing
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func normalize(in map[string]interface{}) row {
	data, _ := json.Marshal(in)
	var out row
	_ = json.Unmarshal(data, &out)
	return out
}

func copyRow(r row) row {
	out := make(row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
