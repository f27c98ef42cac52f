package pwndoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/config"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/instrumentation"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
)

// Remote API contract.
const (
	DefaultLoginPath   = "/api/users/login"
	DefaultRefreshPath = "/api/users/refreshtoken"
	RefreshCookieName  = "refreshToken"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errNoCredentials      = errors.New("no credentials configured (provide username/password or token)")
	errMissingToken       = errors.New("response did not contain a token")
)

// SessionConfig configures a Session.
type SessionConfig struct {
	// BaseURL is the PwnDoc server root, without the /api prefix.
	BaseURL  string
	Username string
	Password string
	// Token is a pre-issued access token. Ignored when Username and
	// Password are both set.
	Token string
	// TokenLifetime is the validity assumed for tokens from login or
	// refresh. The server does not report expiry.
	TokenLifetime time.Duration
	LoginPath     string
	RefreshPath   string
	// AuthScheme becomes the token type sent in the Authorization header.
	// Defaults to "JWT".
	AuthScheme string

	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Session owns the PwnDoc credentials and the current access token.
// Token state lives in an oauth2.Token: a zero Expiry marks a static token
// that is never refreshed proactively.
type Session struct {
	httpClient  *http.Client
	baseURL     string
	username    string
	password    string
	staticToken string
	lifetime    time.Duration
	loginPath   string
	refreshPath string
	tokenType   string
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	now         func() time.Time

	mu    sync.Mutex
	token oauth2.Token

	// flight serializes login and refresh. Concurrent callers share the
	// in-flight result instead of starting a second exchange.
	flight singleflight.Group
}

// NewSession creates an unauthenticated Session. No network I/O happens
// until EnsureAuthenticated is called.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		httpClient:  cfg.HTTPClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		username:    cfg.Username,
		password:    cfg.Password,
		staticToken: cfg.Token,
		lifetime:    cfg.TokenLifetime,
		loginPath:   cfg.LoginPath,
		refreshPath: cfg.RefreshPath,
		tokenType:   cfg.AuthScheme,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		now:         time.Now,
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if s.lifetime <= 0 {
		s.lifetime = time.Hour
	}
	if s.loginPath == "" {
		s.loginPath = DefaultLoginPath
	}
	if s.refreshPath == "" {
		s.refreshPath = DefaultRefreshPath
	}
	if s.tokenType == "" {
		s.tokenType = config.DefaultAuthScheme
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = logging.WithOperation(s.logger, "session")
	return s
}

// HasCredentials reports whether username and password are both configured.
func (s *Session) HasCredentials() bool {
	return s.username != "" && s.password != ""
}

// Mode returns "credentials", "token" or "none".
func (s *Session) Mode() string {
	switch {
	case s.HasCredentials():
		return instrumentation.AuthModeCredentials
	case s.staticToken != "":
		return instrumentation.AuthModeToken
	default:
		return "none"
	}
}

// Token returns a copy of the current token. It implements oauth2.TokenSource
// and is what the client signs each request with.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token.AccessToken == "" {
		return nil, &AuthenticationError{Op: "token", Err: errors.New("not authenticated")}
	}
	tok := s.token
	return &tok, nil
}

// AccessToken returns the current access token, or "" when unauthenticated.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token.AccessToken
}

func (s *Session) snapshot() oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// EnsureAuthenticated makes sure a usable access token is present.
//
// Credentials always win over a static token. An expired token is
// refreshed, falling back to a full login when credentials are available.
func (s *Session) EnsureAuthenticated(ctx context.Context) error {
	tok := s.snapshot()

	if tok.AccessToken == "" {
		if s.HasCredentials() {
			return s.Login(ctx)
		}
		if s.staticToken != "" {
			s.mu.Lock()
			if s.token.AccessToken == "" {
				s.token = oauth2.Token{AccessToken: s.staticToken, TokenType: s.tokenType}
				s.logger.Info("using pre-configured token, automatic refresh unavailable",
					logging.AuthMethod(instrumentation.AuthModeToken))
			}
			s.mu.Unlock()
			return nil
		}
		return &AuthenticationError{Op: "login", Err: errNoCredentials}
	}

	if tok.Expiry.IsZero() || s.now().Before(tok.Expiry) {
		return nil
	}

	s.logger.Debug("access token expired")
	if s.Refresh(ctx) {
		return nil
	}
	if s.HasCredentials() {
		return s.Login(ctx)
	}
	return &AuthenticationError{Op: "refresh", Err: errors.New("token expired and no credentials configured")}
}

// Reauthenticate replaces a token the server rejected with HTTP 401.
// rejected is the token that was sent; if another caller already replaced
// it, no exchange happens.
func (s *Session) Reauthenticate(ctx context.Context, rejected string) error {
	if current := s.AccessToken(); current != "" && current != rejected {
		return nil
	}
	if s.Refresh(ctx) {
		return nil
	}
	if s.HasCredentials() {
		return s.Login(ctx)
	}
	return &AuthenticationError{
		Op:     "reauthenticate",
		Status: http.StatusUnauthorized,
		Err:    errors.New("token rejected and no credentials available"),
	}
}

// Login exchanges username and password for an access token and refresh cookie.
func (s *Session) Login(ctx context.Context) error {
	if !s.HasCredentials() {
		return &AuthenticationError{Op: "login", Err: errNoCredentials}
	}
	_, err, _ := s.flight.Do("auth", func() (any, error) {
		return nil, s.login(ctx)
	})
	return err
}

func (s *Session) login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return &AuthenticationError{Op: "login", Err: err}
	}

	resp, body, err := s.post(ctx, s.loginPath, payload, nil)
	if err != nil {
		s.metrics.RecordAuth(ctx, instrumentation.AuthModeCredentials, instrumentation.ResultFailure)
		return &AuthenticationError{Op: "login", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		s.metrics.RecordAuth(ctx, instrumentation.AuthModeCredentials, instrumentation.ResultFailure)
		return &AuthenticationError{Op: "login", Status: resp.StatusCode, Err: errInvalidCredentials}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		s.metrics.RecordAuth(ctx, instrumentation.AuthModeCredentials, instrumentation.ResultFailure)
		return &AuthenticationError{Op: "login", Status: resp.StatusCode, Err: errors.New(errorDetail(body, resp.Status))}
	}

	access, err := tokenFromBody(body)
	if err != nil {
		s.metrics.RecordAuth(ctx, instrumentation.AuthModeCredentials, instrumentation.ResultFailure)
		return &AuthenticationError{Op: "login", Status: resp.StatusCode, Err: err}
	}

	tok := oauth2.Token{
		AccessToken: access,
		TokenType:   s.tokenType,
		Expiry:      s.now().Add(s.lifetime),
	}
	if c := findCookie(resp, RefreshCookieName); c != "" {
		tok.RefreshToken = c
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	s.metrics.RecordAuth(ctx, instrumentation.AuthModeCredentials, instrumentation.ResultSuccess)
	s.logger.Info("authenticated with username and password",
		logging.AuthMethod(instrumentation.AuthModeCredentials),
		slog.Bool("refresh_token", tok.RefreshToken != ""))
	return nil
}

// Refresh mints a new access token from the refresh cookie. It returns
// false without any network call when no refresh token is held, and never
// returns an error: callers fall back to Login.
func (s *Session) Refresh(ctx context.Context) bool {
	if s.snapshot().RefreshToken == "" {
		return false
	}
	_, err, _ := s.flight.Do("auth", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err == nil
}

func (s *Session) refresh(ctx context.Context) error {
	refreshToken := s.snapshot().RefreshToken
	if refreshToken == "" {
		return errors.New("no refresh token")
	}

	cookie := &http.Cookie{Name: RefreshCookieName, Value: refreshToken}
	resp, body, err := s.post(ctx, s.refreshPath, nil, cookie)
	if err != nil {
		s.metrics.RecordTokenRefresh(ctx, instrumentation.ResultFailure)
		s.logger.Warn("token refresh failed", logging.Err(err))
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.metrics.RecordTokenRefresh(ctx, instrumentation.ResultFailure)
		s.logger.Warn("token refresh rejected", logging.StatusCode(resp.StatusCode))
		return fmt.Errorf("refresh rejected: %s", resp.Status)
	}
	access, err := tokenFromBody(body)
	if err != nil {
		s.metrics.RecordTokenRefresh(ctx, instrumentation.ResultFailure)
		s.logger.Warn("token refresh returned no token", logging.Err(err))
		return err
	}

	s.mu.Lock()
	s.token.AccessToken = access
	s.token.TokenType = s.tokenType
	s.token.Expiry = s.now().Add(s.lifetime)
	if c := findCookie(resp, RefreshCookieName); c != "" {
		s.token.RefreshToken = c
	}
	s.mu.Unlock()

	s.metrics.RecordTokenRefresh(ctx, instrumentation.ResultSuccess)
	s.logger.Debug("access token refreshed")
	return nil
}

func (s *Session) post(ctx context.Context, path string, payload []byte, cookie *http.Cookie) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

// tokenFromBody extracts datas.token from a PwnDoc auth response.
func tokenFromBody(body []byte) (string, error) {
	var envelope struct {
		Datas struct {
			Token string `json:"token"`
		} `json:"datas"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("invalid auth response: %w", err)
	}
	if envelope.Datas.Token == "" {
		return "", errMissingToken
	}
	return envelope.Datas.Token, nil
}

func findCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
