package pwndoc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePwnDoc is a minimal PwnDoc backend. Resource handlers are registered
// per test; login and refresh are built in.
type fakePwnDoc struct {
	t      *testing.T
	server *httptest.Server
	mux    *http.ServeMux

	loginCalls   atomic.Int32
	refreshCalls atomic.Int32

	mu            sync.Mutex
	tokens        []string // issued in order by login/refresh
	issued        int
	refreshCookie string
	loginStatus   int
	loginDelay    time.Duration
}

func newFakePwnDoc(t *testing.T) *fakePwnDoc {
	t.Helper()
	f := &fakePwnDoc{t: t, mux: http.NewServeMux(), tokens: []string{"t1", "t2", "t3", "t4"}}

	f.mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls.Add(1)
		f.mu.Lock()
		status, delay := f.loginStatus, f.loginDelay
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		if status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"status":"error","datas":"Invalid credentials"}`)
			return
		}
		if f.refreshCookie != "" {
			http.SetCookie(w, &http.Cookie{Name: RefreshCookieName, Value: f.refreshCookie})
		}
		_, _ = io.WriteString(w, `{"status":"success","datas":{"token":"`+f.nextToken()+`"}}`)
	})

	f.mux.HandleFunc("POST /api/users/refreshtoken", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		c, err := r.Cookie(RefreshCookieName)
		if err != nil || c.Value != f.refreshCookie {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"status":"success","datas":{"token":"`+f.nextToken()+`"}}`)
	})

	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePwnDoc) nextToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := f.tokens[f.issued%len(f.tokens)]
	f.issued++
	return tok
}

func (f *fakePwnDoc) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordedSleeps) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// newTestClient builds a client against baseURL with instant sleeps.
func newTestClient(t *testing.T, baseURL string, mutate func(*Options)) (*Client, *recordedSleeps) {
	t.Helper()
	opts := Options{
		BaseURL:           baseURL,
		Token:             "static",
		Timeout:           5 * time.Second,
		VerifySSL:         true,
		MaxRetries:        3,
		RetryDelay:        100 * time.Millisecond,
		RateLimitRequests: 1000,
		RateLimitPeriod:   time.Minute,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewClient(opts)
	require.NoError(t, err)

	sleeps := &recordedSleeps{}
	c.sleep = sleeps.sleep
	return c, sleeps
}

func withCredentials(o *Options) {
	o.Username = "admin"
	o.Password = "secret"
}
