package pwndoc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestSession(t *testing.T, f *fakePwnDoc, cfg SessionConfig) *Session {
	t.Helper()
	cfg.BaseURL = f.server.URL
	cfg.HTTPClient = f.server.Client()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSession(cfg)
}

func TestSession_Mode(t *testing.T) {
	tests := []struct {
		name string
		cfg  SessionConfig
		want string
	}{
		{"credentials", SessionConfig{Username: "u", Password: "p"}, "credentials"},
		{"credentials win over token", SessionConfig{Username: "u", Password: "p", Token: "tok"}, "credentials"},
		{"token", SessionConfig{Token: "tok"}, "token"},
		{"username only", SessionConfig{Username: "u", Token: "tok"}, "token"},
		{"none", SessionConfig{}, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSession(tt.cfg).Mode())
		})
	}
}

func TestSession_NoCredentials(t *testing.T) {
	s := NewSession(SessionConfig{BaseURL: "http://127.0.0.1:1"})
	err := s.EnsureAuthenticated(context.Background())
	assert.True(t, IsAuthentication(err))

	_, err = s.Token()
	assert.Error(t, err)
}

func TestSession_LoginStoresToken(t *testing.T) {
	f := newFakePwnDoc(t)
	f.refreshCookie = "r1"
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret", TokenLifetime: 30 * time.Minute})

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.EnsureAuthenticated(context.Background()))

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "t1", tok.AccessToken)
	assert.Equal(t, "r1", tok.RefreshToken)
	assert.Equal(t, now.Add(30*time.Minute), tok.Expiry)
	assert.Equal(t, "JWT", tok.Type())

	// A valid token is reused.
	require.NoError(t, s.EnsureAuthenticated(context.Background()))
	assert.Equal(t, int32(1), f.loginCalls.Load())
}

func TestSession_LoginRejected(t *testing.T) {
	f := newFakePwnDoc(t)
	f.loginStatus = http.StatusUnauthorized
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "wrong"})

	err := s.EnsureAuthenticated(context.Background())
	var ae *AuthenticationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.ErrorIs(t, err, errInvalidCredentials)
	assert.Empty(t, s.AccessToken())
}

func TestSession_LoginServerError(t *testing.T) {
	f := newFakePwnDoc(t)
	f.loginStatus = http.StatusInternalServerError
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret"})

	err := s.Login(context.Background())
	var ae *AuthenticationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestSession_LoginWithoutToken(t *testing.T) {
	f := newFakePwnDoc(t)
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret", LoginPath: "/custom/login"})
	f.handle("POST /custom/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","datas":{}}`)
	})

	err := s.Login(context.Background())
	assert.ErrorIs(t, err, errMissingToken)
}

func TestSession_StaticToken(t *testing.T) {
	f := newFakePwnDoc(t)
	s := newTestSession(t, f, SessionConfig{Token: "static"})

	require.NoError(t, s.EnsureAuthenticated(context.Background()))
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "static", tok.AccessToken)
	assert.True(t, tok.Expiry.IsZero(), "static tokens have no expiry")
	assert.Equal(t, "JWT", tok.Type())
	assert.Zero(t, f.loginCalls.Load())

	// Far in the future the static token is still used as-is.
	s.now = func() time.Time { return time.Now().Add(100 * 24 * time.Hour) }
	require.NoError(t, s.EnsureAuthenticated(context.Background()))
	assert.Equal(t, "static", s.AccessToken())
	assert.Zero(t, f.refreshCalls.Load())
}

func TestSession_ExpiredTokenRefreshes(t *testing.T) {
	f := newFakePwnDoc(t)
	f.refreshCookie = "r1"
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret", TokenLifetime: time.Hour})

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.EnsureAuthenticated(context.Background()))
	assert.Equal(t, "t1", s.AccessToken())

	now = now.Add(time.Hour)
	require.NoError(t, s.EnsureAuthenticated(context.Background()))

	assert.Equal(t, "t2", s.AccessToken())
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, int32(1), f.loginCalls.Load())

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Expiry)
	assert.Equal(t, "JWT", tok.Type())
}

func TestSession_TokenSignsRequests(t *testing.T) {
	tests := []struct {
		name   string
		scheme string
		want   string
	}{
		{"default scheme", "", "JWT t1"},
		{"bearer", "Bearer", "Bearer t1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePwnDoc(t)
			s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret", AuthScheme: tt.scheme})
			require.NoError(t, s.Login(context.Background()))

			var src oauth2.TokenSource = s
			tok, err := src.Token()
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/users/me", nil)
			require.NoError(t, err)
			tok.SetAuthHeader(req)
			assert.Equal(t, tt.want, req.Header.Get("Authorization"))
		})
	}
}

func TestSession_RefreshFailureFallsBackToLogin(t *testing.T) {
	f := newFakePwnDoc(t)
	f.refreshCookie = "r1"
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret"})
	require.NoError(t, s.Login(context.Background()))

	// The server forgets the refresh token.
	f.refreshCookie = "rotated"

	require.NoError(t, s.Reauthenticate(context.Background(), "t1"))
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, int32(2), f.loginCalls.Load())
	assert.Equal(t, "t2", s.AccessToken())
}

func TestSession_RefreshWithoutCookieMakesNoCall(t *testing.T) {
	f := newFakePwnDoc(t)
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret"})
	require.NoError(t, s.Login(context.Background()))

	assert.False(t, s.Refresh(context.Background()))
	assert.Zero(t, f.refreshCalls.Load())
}

func TestSession_ReauthenticateSkipsReplacedToken(t *testing.T) {
	f := newFakePwnDoc(t)
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret"})
	require.NoError(t, s.Login(context.Background()))

	// Another caller already replaced the rejected token.
	require.NoError(t, s.Reauthenticate(context.Background(), "stale"))
	assert.Equal(t, int32(1), f.loginCalls.Load())
	assert.Equal(t, "t1", s.AccessToken())
}

func TestSession_ConcurrentLoginIsShared(t *testing.T) {
	f := newFakePwnDoc(t)
	f.loginDelay = 50 * time.Millisecond
	s := newTestSession(t, f, SessionConfig{Username: "admin", Password: "secret"})

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	start := make(chan struct{})
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- s.EnsureAuthenticated(context.Background())
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.loginCalls.Load())
	assert.Equal(t, "t1", s.AccessToken())
}

func TestTokenFromBody(t *testing.T) {
	tok, err := tokenFromBody([]byte(`{"datas":{"token":"abc"}}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = tokenFromBody([]byte(`not json`))
	assert.Error(t, err)

	_, err = tokenFromBody([]byte(`{"datas":{}}`))
	assert.ErrorIs(t, err, errMissingToken)
}
