package pwndoc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/config"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{RateLimitRequests: 1, RateLimitPeriod: time.Second})
	assert.Error(t, err, "base URL is required")

	_, err = NewClient(Options{BaseURL: "http://x", RateLimitRequests: 0, RateLimitPeriod: time.Second})
	assert.ErrorIs(t, err, ErrInvalidRateLimit)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://x", RateLimitRequests: 1, RateLimitPeriod: time.Second, RetryDelay: 0})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMaxRetries, c.maxRetries)
	assert.Equal(t, config.DefaultMaxRetryDelay, c.maxRetryDelay)
	assert.Zero(t, c.retryDelay)

	c, err = NewClient(Options{BaseURL: "http://x", RateLimitRequests: 1, RateLimitPeriod: time.Second, RetryDelay: -1})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRetryDelay, c.retryDelay)
}

func TestClient_Success(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JWT static", r.Header.Get("Authorization"))
		cookie, err := r.Cookie("token")
		require.NoError(t, err)
		assert.Equal(t, "JWT static", cookie.Value)
		_, _ = io.WriteString(w, `{"status":"success","datas":[{"_id":"a1"},{"_id":"a2"}]}`)
	})

	c, _ := newTestClient(t, f.server.URL, nil)
	raw, err := c.Get(context.Background(), "/audits")
	require.NoError(t, err)
	assert.Equal(t, 2, Count(raw))
	assert.Zero(t, f.loginCalls.Load(), "static token needs no login")
}

func TestClient_SendsJSONBody(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("PUT /api/audits/a1/sortfindings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cvss", body["sortBy"])
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})

	c, _ := newTestClient(t, f.server.URL, nil)
	_, err := c.Put(context.Background(), "audits/a1/sortfindings", map[string]any{"sortBy": "cvss"})
	require.NoError(t, err)
}

func TestClient_AuthSchemeBearer(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer static", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{}`)
	})

	c, _ := newTestClient(t, f.server.URL, func(o *Options) { o.AuthScheme = "Bearer" })
	_, err := c.Get(context.Background(), "/users/me")
	require.NoError(t, err)
}

func TestClient_EmptySuccessBody(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("DELETE /api/audits/a1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c, _ := newTestClient(t, f.server.URL, nil)
	raw, err := c.Delete(context.Background(), "/audits/a1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(raw))
}

func TestClient_NonJSONSuccessBody(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/audits/a1/generate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "PK\x03\x04 not json")
	})

	c, _ := newTestClient(t, f.server.URL, nil)
	_, err := c.Get(context.Background(), "/audits/a1/generate")
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "/audits/a1/generate", serr.Path)
}

func TestClient_UnencodableBody(t *testing.T) {
	c, _ := newTestClient(t, "http://127.0.0.1:1", nil)
	_, err := c.Post(context.Background(), "/audits", map[string]any{"bad": make(chan int)})
	var serr *SerializationError
	assert.ErrorAs(t, err, &serr)
}

func TestClient_NotFoundNeverRetried(t *testing.T) {
	f := newFakePwnDoc(t)
	var calls atomic.Int32
	f.handle("GET /api/audits/missing", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	c, sleeps := newTestClient(t, f.server.URL, func(o *Options) { o.MaxRetries = 3 })
	_, err := c.Get(context.Background(), "/audits/missing")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeps.all())
}

func TestClient_RateLimitExhaustsRetries(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		wantDelays []time.Duration
	}{
		{"two attempts", 2, []time.Duration{100 * time.Millisecond}},
		{"four attempts", 4, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePwnDoc(t)
			var calls atomic.Int32
			f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusTooManyRequests)
			})

			c, sleeps := newTestClient(t, f.server.URL, func(o *Options) { o.MaxRetries = tt.maxRetries })
			_, err := c.Get(context.Background(), "/audits")

			var rle *RateLimitError
			require.ErrorAs(t, err, &rle)
			assert.Equal(t, tt.maxRetries, rle.Attempts)
			assert.Equal(t, int32(tt.maxRetries), calls.Load())
			assert.Equal(t, tt.wantDelays, sleeps.all())
		})
	}
}

func TestClient_RateLimitHonoursRetryAfter(t *testing.T) {
	f := newFakePwnDoc(t)
	var calls atomic.Int32
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"datas":[]}`)
	})

	c, sleeps := newTestClient(t, f.server.URL, nil)
	_, err := c.Get(context.Background(), "/audits")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeps.all())
}

func TestClient_APIErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"datas string", http.StatusBadRequest, `{"status":"error","datas":"Audit name required"}`, "Audit name required"},
		{"message", http.StatusForbidden, `{"message":"Insufficient privileges"}`, "Insufficient privileges"},
		{"datas object", http.StatusUnprocessableEntity, `{"datas":{"field":"name"}}`, `{"field":"name"}`},
		{"raw body", http.StatusInternalServerError, "upstream exploded", "upstream exploded"},
		{"empty body", http.StatusBadGateway, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePwnDoc(t)
			var calls atomic.Int32
			f.handle("POST /api/audits", func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			c, _ := newTestClient(t, f.server.URL, nil)
			_, err := c.Post(context.Background(), "/audits", map[string]any{})

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, int32(1), calls.Load(), "API errors are not retried")
		})
	}
}

func TestClient_TransportErrorRetries(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	c, sleeps := newTestClient(t, url, func(o *Options) { o.MaxRetries = 3 })
	_, err := c.Get(context.Background(), "/audits")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeps.all())
}

func TestClient_TransportRecovers(t *testing.T) {
	f := newFakePwnDoc(t)
	var calls atomic.Int32
	f.handle("GET /api/settings", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Drop the connection without a response.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = io.WriteString(w, `{"datas":{}}`)
	})

	c, sleeps := newTestClient(t, f.server.URL, nil)
	_, err := c.Get(context.Background(), "/settings")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, sleeps.all(), 1)
}

func TestClient_ReactiveReauthWithLogin(t *testing.T) {
	f := newFakePwnDoc(t)
	var calls atomic.Int32
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Only the second issued token is accepted.
		if r.Header.Get("Authorization") != "JWT t2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"datas":[]}`)
	})

	c, sleeps := newTestClient(t, f.server.URL, withCredentials)
	_, err := c.Get(context.Background(), "/audits")
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.loginCalls.Load(), "initial login plus one reactive login")
	assert.Zero(t, f.refreshCalls.Load(), "no refresh cookie was issued")
	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, sleeps.all(), "replay is immediate")
}

func TestClient_ReactiveReauthWithRefresh(t *testing.T) {
	f := newFakePwnDoc(t)
	f.refreshCookie = "r1"
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "JWT t2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"datas":[]}`)
	})

	c, _ := newTestClient(t, f.server.URL, withCredentials)
	_, err := c.Get(context.Background(), "/audits")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.loginCalls.Load())
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestClient_SecondUnauthorizedIsFatal(t *testing.T) {
	f := newFakePwnDoc(t)
	var calls atomic.Int32
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, _ := newTestClient(t, f.server.URL, withCredentials)
	_, err := c.Get(context.Background(), "/audits")

	var ae *AuthenticationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, int32(2), calls.Load(), "exactly one replay")
	assert.Equal(t, int32(2), f.loginCalls.Load())
}

func TestClient_StaticTokenRejected(t *testing.T) {
	f := newFakePwnDoc(t)
	var calls atomic.Int32
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, _ := newTestClient(t, f.server.URL, nil)
	_, err := c.Get(context.Background(), "/audits")

	assert.True(t, IsAuthentication(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, f.loginCalls.Load())
}

func TestClient_CredentialsWinOverToken(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JWT t1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"datas":{"username":"admin"}}`)
	})

	c, _ := newTestClient(t, f.server.URL, func(o *Options) {
		withCredentials(o)
		o.Token = "static"
	})
	_, err := c.Get(context.Background(), "/users/me")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.loginCalls.Load())
	assert.NotEqual(t, "static", c.Session().AccessToken())
}

func TestClient_ClientSideRateLimit(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"datas":[]}`)
	})

	c, _ := newTestClient(t, f.server.URL, func(o *Options) {
		o.RateLimitRequests = 1
		o.RateLimitPeriod = 10 * time.Second
	})
	clock := newFakeClock()
	c.limiter.now = clock.Now
	c.sleep = clock.Sleep

	start := clock.Now()
	_, err := c.Get(context.Background(), "/audits")
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "/audits")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, clock.Now().Sub(start), 10*time.Second)
}

func TestClient_ContextCancelled(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/audits", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	c, _ := newTestClient(t, f.server.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "/audits")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_TestConnection(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","datas":{"username":"alice","role":"admin"}}`)
	})

	c, _ := newTestClient(t, f.server.URL, withCredentials)
	status, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, status.OK)
	assert.Equal(t, "alice", status.User)
	assert.Equal(t, "admin", status.Role)
	assert.Equal(t, "credentials", status.AuthMethod)
	assert.Equal(t, f.server.URL, status.URL)
}

func TestClient_TestConnectionFailure(t *testing.T) {
	f := newFakePwnDoc(t)
	f.loginStatus = http.StatusUnauthorized

	c, _ := newTestClient(t, f.server.URL, withCredentials)
	status, err := c.TestConnection(context.Background())
	require.Error(t, err)
	assert.False(t, status.OK)
	assert.Contains(t, status.Error, "invalid credentials")
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "x", errorDetail([]byte(`{"datas":"x","message":"y"}`), ""))
	assert.Equal(t, "y", errorDetail([]byte(`{"message":"y"}`), ""))
	assert.Equal(t, `{"other":1}`, errorDetail([]byte(`{"other":1}`), ""))
	assert.Equal(t, "fallback", errorDetail(nil, "fallback"))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-3"))
	assert.Zero(t, parseRetryAfter("soon"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := parseRetryAfter(future)
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 3, Count(json.RawMessage(`{"datas":[1,2,3]}`)))
	assert.Zero(t, Count(json.RawMessage(`{"datas":{}}`)))
	assert.Zero(t, Count(json.RawMessage(`[]`)))
}

func TestClient_Download(t *testing.T) {
	f := newFakePwnDoc(t)
	f.handle("GET /api/images/download/i1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	c, _ := newTestClient(t, f.server.URL, nil)
	raw, err := c.Download(context.Background(), "/images/download/i1")
	require.NoError(t, err)

	var bin Binary
	require.NoError(t, json.Unmarshal(raw, &bin))
	assert.Equal(t, "image/png", bin.ContentType)
	assert.Equal(t, 4, bin.Size)
	assert.Equal(t, "iVBORw==", bin.DataBase64)
}
