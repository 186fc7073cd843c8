package supabasetest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type account struct {
	ID       string
	Email    string
	Password string
	Metadata map[string]interface{}
	Created  time.Time
}

func (a *account) json() map[string]interface{} {
	return map[string]interface{}{
		"id":                 a.ID,
		"email":              a.Email,
		"user_metadata":      a.Metadata,
		"app_metadata":       map[string]interface{}{"provider": "email"},
		"email_confirmed_at": a.Created.Format(time.RFC3339),
		"created_at":         a.Created.Format(time.RFC3339),
	}
}

// TokenOptions shapes a token minted with IssueTokens.
type TokenOptions struct {
	TTL      time.Duration // defaults to one hour; negative yields an expired token
	Recovery bool          // mark the token as issued by a one-time-password flow
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(email, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, map[string]interface{}{"name": name}).ID
}

func (s *Server) addUserLocked(email, password string, metadata map[string]interface{}) *account {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	a := &account{
		ID:       uuid.NewString(),
		Email:    strings.ToLower(email),
		Password: password,
		Metadata: metadata,
		Created:  time.Now().UTC(),
	}
	s.accounts[a.Email] = a
	return a
}

// Password returns the current password of an account.
func (s *Server) Password(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[strings.ToLower(email)]; ok {
		return a.Password
	}
	return ""
}

// IssueTokens mints an access and refresh token for an existing account.
func (s *Server) IssueTokens(email string, opts TokenOptions) (accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return "", ""
	}
	return s.issueLocked(a, opts)
}

func (s *Server) issueLocked(a *account, opts TokenOptions) (string, string) {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	method := "password"
	if opts.Recovery {
		method = "otp"
	}
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":           a.ID,
		"email":         a.Email,
		"role":          "authenticated",
		"iat":           now.Unix(),
		"exp":           now.Add(ttl).Unix(),
		"user_metadata": a.Metadata,
		"amr":           []map[string]interface{}{{"method": method, "timestamp": now.Unix()}},
		"session_id":    uuid.NewString(),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))

	refresh := uuid.NewString()
	s.refresh[refresh] = a.Email
	return access, refresh
}

func (s *Server) sessionLocked(a *account, opts TokenOptions) map[string]interface{} {
	access, refresh := s.issueLocked(a, opts)
	return map[string]interface{}{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    3600,
		"user":          a.json(),
	}
}

// accountForToken validates a bearer token the way the identity service does.
func (s *Server) accountForToken(r *http.Request) (*account, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return nil, false
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, _ := token.Claims.(jwt.MapClaims)
	email, _ := claims["email"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	return a, ok
}

func authError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"code":       status,
		"error_code": code,
		"msg":        msg,
	})
}

func (s *Server) serveAuth(w http.ResponseWriter, r *http.Request, endpoint string, body []byte) {
	var payload map[string]interface{}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &payload)
	}
	str := func(key string) string {
		v, _ := payload[key].(string)
		return v
	}

	switch {
	case endpoint == "token" && r.Method == http.MethodPost:
		switch r.URL.Query().Get("grant_type") {
		case "password":
			s.mu.Lock()
			a, ok := s.accounts[strings.ToLower(str("email"))]
			if !ok || a.Password != str("password") {
				s.mu.Unlock()
				authError(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
				return
			}
			session := s.sessionLocked(a, TokenOptions{})
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, session)
		case "refresh_token":
			s.mu.Lock()
			email, ok := s.refresh[str("refresh_token")]
			if !ok {
				s.mu.Unlock()
				authError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
				return
			}
			delete(s.refresh, str("refresh_token"))
			session := s.sessionLocked(s.accounts[email], TokenOptions{})
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, session)
		default:
			authError(w, http.StatusBadRequest, "validation_failed", "unsupported_grant_type")
		}

	case endpoint == "signup" && r.Method == http.MethodPost:
		email := strings.ToLower(str("email"))
		if email == "" || len(str("password")) < 6 {
			authError(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters.")
			return
		}
		metadata, _ := payload["data"].(map[string]interface{})
		s.mu.Lock()
		if _, exists := s.accounts[email]; exists {
			s.mu.Unlock()
			authError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
			return
		}
		a := s.addUserLocked(email, str("password"), metadata)
		if s.RequireEmailConfirm {
			user := a.json()
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, user)
			return
		}
		session := s.sessionLocked(a, TokenOptions{})
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, session)

	case endpoint == "user" && r.Method == http.MethodGet:
		a, ok := s.accountForToken(r)
		if !ok {
			authError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT: unable to parse or verify signature")
			return
		}
		s.mu.Lock()
		user := a.json()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, user)

	case endpoint == "user" && r.Method == http.MethodPut:
		a, ok := s.accountForToken(r)
		if !ok {
			authError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT: unable to parse or verify signature")
			return
		}
		s.mu.Lock()
		if p := str("password"); p != "" {
			a.Password = p
		}
		if data, ok := payload["data"].(map[string]interface{}); ok {
			for k, v := range data {
				a.Metadata[k] = v
			}
		}
		user := a.json()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, user)

	case endpoint == "recover" && r.Method == http.MethodPost:
		s.mu.Lock()
		s.recover = append(s.recover, strings.ToLower(str("email")))
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{})

	case endpoint == "logout" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusNoContent)

	case endpoint == "admin/users":
		if r.Header.Get("Authorization") != "Bearer "+APIKey {
			authError(w, http.StatusForbidden, "not_admin", "User not allowed")
			return
		}
		s.serveAdminUsers(w, r, payload)

	default:
		authError(w, http.StatusNotFound, "not_found", "not found")
	}
}

func (s *Server) serveAdminUsers(w http.ResponseWriter, r *http.Request, payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 {
			perPage = 50
		}

		emails := make([]string, 0, len(s.accounts))
		for email := range s.accounts {
			emails = append(emails, email)
		}
		sort.Strings(emails)

		users := []map[string]interface{}{}
		start := (page - 1) * perPage
		for i := start; i < len(emails) && i < start+perPage; i++ {
			users = append(users, s.accounts[emails[i]].json())
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"users": users, "aud": "authenticated"})

	case http.MethodPost:
		email, _ := payload["email"].(string)
		password, _ := payload["password"].(string)
		email = strings.ToLower(email)
		if _, exists := s.accounts[email]; exists {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"code": 422, "error_code": "email_exists", "msg": "A user with this email address has already been registered",
			})
			return
		}
		metadata, _ := payload["user_metadata"].(map[string]interface{})
		writeJSON(w, http.StatusOK, s.addUserLocked(email, password, metadata).json())

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
