package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/metrics"
)

// AuthClient defines the hosted auth operations the service consumes
type AuthClient interface {
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	SignUp(ctx context.Context, email, password, name string) (*AuthResult, error)
	SignOut(ctx context.Context, accessToken string) error
}

// AuthUser is the user object returned by the hosted auth API
type AuthUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// MetadataName returns user_metadata.name when it is a non-empty string
func (u *AuthUser) MetadataName() string {
	if u == nil {
		return ""
	}
	if name, ok := u.UserMetadata["name"].(string); ok {
		return name
	}
	return ""
}

// AuthSession is an issued backend session
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthResult holds the user and, when one was issued, the session.
// Sign-up without auto-confirm returns a user only.
type AuthResult struct {
	User    *AuthUser
	Session *AuthSession
}

// AuthError is a non-2xx answer from the hosted auth API
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth api error (status %d): %s", e.StatusCode, e.Message)
}

// GoTrueClient talks to the hosted auth API under /auth/v1
type GoTrueClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewGoTrueClient creates a new GoTrueClient
func NewGoTrueClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *GoTrueClient {
	return &GoTrueClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
		logger:  logger,
	}
}

type sessionResponse struct {
	AuthSession
	User *AuthUser `json:"user"`
}

// SignIn exchanges email and password for a session
func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	data, err := c.makeRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, "")
	if err != nil {
		return nil, err
	}
	return decodeAuthResult(data)
}

// SignUp registers a user with user_metadata.name
func (c *GoTrueClient) SignUp(ctx context.Context, email, password, name string) (*AuthResult, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}
	data, err := c.makeRequest(ctx, http.MethodPost, "/auth/v1/signup", body, "")
	if err != nil {
		return nil, err
	}
	return decodeAuthResult(data)
}

// SignOut revokes the backend session behind accessToken
func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.makeRequest(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken)
	return err
}

func decodeAuthResult(data []byte) (*AuthResult, error) {
	var resp sessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	if resp.AccessToken == "" {
		// no session: the body is the bare user object
		var user AuthUser
		if err := json.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("failed to decode auth user: %w", err)
		}
		return &AuthResult{User: &user}, nil
	}

	session := resp.AuthSession
	return &AuthResult{User: resp.User, Session: &session}, nil
}

func (c *GoTrueClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}, bearer string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordExternalAPICall(endpoint, method, 0, time.Since(start), err)
		c.logger.Error("Auth API request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.RecordExternalAPICall(endpoint, method, resp.StatusCode, time.Since(start), nil)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: authErrorMessage(data)}
	}
	return data, nil
}

// authErrorMessage picks the first human readable field of an auth error body
func authErrorMessage(data []byte) string {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return string(data)
	}
	for _, key := range []string{"error_description", "msg", "message", "error"} {
		if s := v.GetStringBytes(key); len(s) > 0 {
			return string(s)
		}
	}
	return string(data)
}
