package pwndoc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/config"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/instrumentation"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 64 << 20

// emptySuccess is returned for 2xx responses without a body.
var emptySuccess = json.RawMessage(`{"success":true}`)

// Options configures a Client. Non-positive Timeout, MaxRetries and
// MaxRetryDelay, an empty AuthScheme and a nil Logger fall back to the
// defaults in the config package; a negative RetryDelay does too, while zero
// retries without delay. RateLimitRequests and RateLimitPeriod must be
// positive.
type Options struct {
	// BaseURL is the PwnDoc server root. API paths are resolved under BaseURL/api.
	BaseURL  string
	Username string
	Password string
	Token    string

	Timeout    time.Duration
	VerifySSL  bool
	MaxRetries int
	// RetryDelay is the base delay; attempt n waits RetryDelay * 2^n.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	RateLimitRequests int
	RateLimitPeriod   time.Duration

	TokenLifetime time.Duration
	// AuthScheme is the token type in the Authorization header ("JWT" or "Bearer").
	AuthScheme string

	// HTTPClient overrides the client built from Timeout and VerifySSL.
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// OptionsFromConfig maps a validated Config onto client Options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		BaseURL:           cfg.BaseURL(),
		Username:          cfg.Username,
		Password:          cfg.Password,
		Token:             cfg.Token,
		Timeout:           cfg.Timeout,
		VerifySSL:         cfg.VerifySSL,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		MaxRetryDelay:     cfg.MaxRetryDelay,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitPeriod:   cfg.RateLimitPeriod,
		TokenLifetime:     cfg.TokenLifetime,
		AuthScheme:        cfg.AuthScheme,
	}
}

// Client executes PwnDoc API calls with authentication, client-side rate
// limiting, retries and error classification.
type Client struct {
	httpClient    *http.Client
	apiURL        string
	baseURL       string
	session       *Session
	limiter       *RateLimiter
	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	logger        *slog.Logger
	metrics       *instrumentation.Metrics

	sleep func(context.Context, time.Duration) error
}

// NewClient builds a Client. It performs no network I/O.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = config.DefaultMaxRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = config.DefaultRetryDelay
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = config.DefaultMaxRetryDelay
	}
	if opts.AuthScheme == "" {
		opts.AuthScheme = config.DefaultAuthScheme
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limiter, err := NewRateLimiter(opts.RateLimitRequests, opts.RateLimitPeriod)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !opts.VerifySSL {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed PwnDoc deployments
		}
		httpClient = &http.Client{Timeout: opts.Timeout, Transport: transport}
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	logger := logging.WithOperation(opts.Logger, "pwndoc")

	return &Client{
		httpClient: httpClient,
		apiURL:     base + "/api",
		baseURL:    base,
		session: NewSession(SessionConfig{
			BaseURL:       base,
			Username:      opts.Username,
			Password:      opts.Password,
			Token:         opts.Token,
			TokenLifetime: opts.TokenLifetime,
			AuthScheme:    opts.AuthScheme,
			HTTPClient:    httpClient,
			Logger:        opts.Logger,
			Metrics:       opts.Metrics,
		}),
		limiter:       limiter,
		maxRetries:    opts.MaxRetries,
		retryDelay:    opts.RetryDelay,
		maxRetryDelay: opts.MaxRetryDelay,
		logger:        logger,
		metrics:       opts.Metrics,
		sleep:         sleepContext,
	}, nil
}

// Session returns the client's authentication session.
func (c *Client) Session() *Session {
	return c.session
}

// BaseURL returns the PwnDoc server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do executes one logical API call. path is relative to /api. body, when
// non-nil, is sent as JSON. The returned payload is the raw JSON response;
// an empty 2xx body yields {"success":true}.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	ctx, span := instrumentation.StartAPISpan(ctx, method, path)
	defer span.End()

	result, err := c.do(ctx, method, path, body, false)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return result, nil
}

// Download fetches a binary resource with GET. The result is a JSON object
// carrying the content type, the size and the base64-encoded bytes.
func (c *Client) Download(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, span := instrumentation.StartAPISpan(ctx, http.MethodGet, path)
	defer span.End()

	result, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return result, nil
}

// Binary is the JSON form of a downloaded resource.
type Binary struct {
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	DataBase64  string `json:"data_base64"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, binary bool) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &SerializationError{Op: "encode request", Path: path, Err: err}
		}
	}

	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	waited, err := c.limiter.Wait(ctx, c.sleep)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	if waited > 0 {
		c.metrics.RecordRateLimitWait(ctx, waited)
		c.logger.Debug("rate limited by client", logging.Path(path), logging.Duration(waited))
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     c.retryDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.maxRetryDelay,
	}
	bo.Reset()

	reauthenticated := false
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		tok, err := c.session.Token()
		if err != nil {
			return nil, err
		}
		status, header, respBody, err := c.send(ctx, method, path, payload, tok)

		if err != nil {
			if ctx.Err() != nil || attempt+1 >= c.maxRetries {
				return nil, &TransportError{Method: method, Path: path, Attempts: attempt + 1, Err: err}
			}
			delay := bo.NextBackOff()
			c.logger.Warn("request failed, retrying",
				logging.Method(method), logging.Path(path), logging.Attempt(attempt),
				logging.Duration(delay), logging.Err(err))
			c.metrics.RecordRetry(ctx, instrumentation.RetryReasonTransport)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &TransportError{Method: method, Path: path, Attempts: attempt + 1, Err: err}
			}
			continue
		}

		switch {
		case status == http.StatusUnauthorized:
			if reauthenticated {
				return nil, &AuthenticationError{
					Op:     "request",
					Status: status,
					Err:    errors.New("token rejected again after re-authentication"),
				}
			}
			reauthenticated = true
			c.logger.Info("token rejected, re-authenticating", logging.Path(path))
			if err := c.session.Reauthenticate(ctx, tok.AccessToken); err != nil {
				return nil, err
			}
			// The replay does not consume an attempt.
			attempt--
			continue

		case status == http.StatusNotFound:
			return nil, &NotFoundError{Method: method, Path: path}

		case status == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(header.Get("Retry-After"))
			if attempt+1 >= c.maxRetries {
				return nil, &RateLimitError{Method: method, Path: path, Attempts: attempt + 1, RetryAfter: retryAfter}
			}
			delay := bo.NextBackOff()
			if retryAfter > 0 {
				delay = min(retryAfter, c.maxRetryDelay)
			}
			c.logger.Warn("rate limited by server, retrying",
				logging.Method(method), logging.Path(path), logging.Attempt(attempt), logging.Duration(delay))
			c.metrics.RecordRetry(ctx, instrumentation.RetryReasonRateLimited)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &TransportError{Method: method, Path: path, Attempts: attempt + 1, Err: err}
			}
			continue

		case status >= 400:
			return nil, &APIError{Method: method, Path: path, Status: status, Detail: errorDetail(respBody, "")}
		}

		if binary {
			encoded, err := json.Marshal(Binary{
				ContentType: header.Get("Content-Type"),
				Size:        len(respBody),
				DataBase64:  base64.StdEncoding.EncodeToString(respBody),
			})
			if err != nil {
				return nil, &SerializationError{Op: "encode download", Path: path, Err: err}
			}
			return encoded, nil
		}
		if len(bytes.TrimSpace(respBody)) == 0 {
			return emptySuccess, nil
		}
		if !json.Valid(respBody) {
			return nil, &SerializationError{Op: "decode response", Path: path, Err: errors.New("response body is not valid JSON")}
		}
		return json.RawMessage(respBody), nil
	}

	// Only reachable with maxRetries <= 0, which NewClient prevents.
	return nil, &TransportError{Method: method, Path: path, Err: errors.New("no attempts made")}
}

// send performs a single HTTP exchange and records its metrics.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, tok *oauth2.Token) (int, http.Header, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Accept", "application/json, */*")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok.SetAuthHeader(req)
	// PwnDoc's web client authenticates with this cookie.
	req.AddCookie(&http.Cookie{Name: "token", Value: "JWT " + tok.AccessToken})
	instrumentation.InjectHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordAPIRequest(ctx, method, instrumentation.RouteTemplate(path), 0, time.Since(start))
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	duration := time.Since(start)
	c.metrics.RecordAPIRequest(ctx, method, instrumentation.RouteTemplate(path), resp.StatusCode, duration)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("api request",
		logging.Method(method), logging.Path(path),
		logging.StatusCode(resp.StatusCode), logging.Duration(duration))
	return resp.StatusCode, resp.Header, body, nil
}

// errorDetail extracts a message from a PwnDoc error body. It looks for
// {"datas": ...} then {"message": ...}, and falls back to the raw body,
// then to fallback.
func errorDetail(body []byte, fallback string) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		for _, key := range []string{"datas", "message"} {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return s
			}
			return string(raw)
		}
	}
	return string(trimmed)
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
