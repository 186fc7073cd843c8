package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// User is an identity-service account.
type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata      map[string]interface{} `json:"app_metadata,omitempty"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	CreatedAt        *time.Time             `json:"created_at,omitempty"`
}

// DisplayName prefers the name stored in user metadata and falls back to the
// local part of the email address.
func (u User) DisplayName() string {
	for _, key := range []string{"name", "full_name"} {
		if v, ok := u.UserMetadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

// Session is the token pair returned by a successful sign-in or refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *Client) token(ctx context.Context, grantType string, payload interface{}) (*Session, error) {
	body, err := jsonBody(payload)
	if err != nil {
		return nil, err
	}

	var session Session
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
	}, &session, callOptions{})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SignUpResult holds the new account and, when email confirmation is off, its session.
type SignUpResult struct {
	User    User
	Session *Session
}

// SignUp registers a new account with the display name stored in user metadata.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	body, err := jsonBody(map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	})
	if err != nil {
		return nil, err
	}

	// The service answers with a session when it can sign the user in
	// immediately, otherwise with the bare user object.
	var raw struct {
		Session
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "signup",
		body:   body,
	}, &raw, callOptions{})
	if err != nil {
		return nil, err
	}

	result := &SignUpResult{User: raw.User}
	if raw.AccessToken != "" {
		session := raw.Session
		result.Session = &session
	} else if raw.ID != "" {
		result.User = User{ID: raw.ID, Email: raw.Email}
	}
	return result, nil
}

// GetUser returns the account owning accessToken; the service validates the token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   authPrefix + "user",
	}, &user, callOptions{token: accessToken})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserAttributes are the mutable fields of the signed-in account.
type UserAttributes struct {
	Password string                 `json:"password,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// UpdateUser changes the password or metadata of the account owning accessToken.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	body, err := jsonBody(attrs)
	if err != nil {
		return nil, err
	}

	var user User
	err = c.do(ctx, request{
		method: http.MethodPut,
		path:   authPrefix + "user",
		body:   body,
	}, &user, callOptions{token: accessToken})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Recover sends a password recovery email that links back to redirectTo.
func (c *Client) Recover(ctx context.Context, email, redirectTo string) error {
	body, err := jsonBody(map[string]string{"email": email})
	if err != nil {
		return err
	}

	values := url.Values{}
	if redirectTo != "" {
		values.Set("redirect_to", redirectTo)
	}

	return c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "recover",
		query:  values,
		body:   body,
	}, nil, callOptions{})
}

// Logout revokes the refresh tokens of the session owning accessToken.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "logout",
	}, nil, callOptions{token: accessToken})
}

// AdminUserParams creates an account through the admin API.
type AdminUserParams struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// AdminListUsers pages through all accounts. The client must use the service role key.
func (c *Client) AdminListUsers(ctx context.Context, page, perPage int) ([]User, error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("per_page", strconv.Itoa(perPage))

	var out struct {
		Users []User `json:"users"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   authPrefix + "admin/users",
		query:  values,
	}, &out, callOptions{token: c.apiKey})
	if err != nil {
		return nil, err
	}
	return out.Users, nil
}

// AdminCreateUser creates an account without sending a confirmation email.
func (c *Client) AdminCreateUser(ctx context.Context, params AdminUserParams) (*User, error) {
	body, err := jsonBody(params)
	if err != nil {
		return nil, err
	}

	var user User
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "admin/users",
		body:   body,
	}, &user, callOptions{token: c.apiKey})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
