package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
)

// Authentication modes reported by AuthMethod.
const (
	AuthCredentials = "credentials"
	AuthToken       = "token"
	AuthNone        = "none"
)

// Default values.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = time.Second
	DefaultMaxRetryDelay     = 30 * time.Second
	DefaultRateLimitRequests = 100
	DefaultRateLimitPeriod   = 60 * time.Second
	DefaultTokenLifetime     = time.Hour
	DefaultAuthScheme        = "JWT"
	DefaultLogLevel          = "info"
)

// ErrInvalidConfig is wrapped by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting the server needs.
type Config struct {
	URL      string
	Username string
	Password string
	Token    string

	VerifySSL     bool
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	RateLimitRequests int
	RateLimitPeriod   time.Duration

	// TokenLifetime is the assumed validity of a freshly issued token.
	// PwnDoc does not report expiry, so this is a heuristic.
	TokenLifetime time.Duration
	// AuthScheme prefixes the token in the Authorization header.
	AuthScheme string

	LogLevel  string
	LogFile   string
	LogFormat string
}

// DefaultConfig returns a Config populated with defaults and no server or credentials.
func DefaultConfig() Config {
	return Config{
		VerifySSL:         true,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		RetryDelay:        DefaultRetryDelay,
		MaxRetryDelay:     DefaultMaxRetryDelay,
		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitPeriod:   DefaultRateLimitPeriod,
		TokenLifetime:     DefaultTokenLifetime,
		AuthScheme:        DefaultAuthScheme,
		LogLevel:          DefaultLogLevel,
		LogFormat:         logging.FormatText,
	}
}

// AuthMethod reports which credential mode applies.
// Username and password take priority over a static token.
func (c *Config) AuthMethod() string {
	switch {
	case c.Username != "" && c.Password != "":
		return AuthCredentials
	case c.Token != "":
		return AuthToken
	default:
		return AuthNone
	}
}

// BaseURL returns URL without trailing slashes.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.URL, "/")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.URL == "" {
		result = multierror.Append(result, errors.New("PWNDOC_URL is required"))
	} else if u, err := url.Parse(c.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("invalid URL %q: must start with http:// or https://", c.URL))
	}

	if c.AuthMethod() == AuthNone {
		result = multierror.Append(result, errors.New("either PWNDOC_TOKEN or PWNDOC_USERNAME/PWNDOC_PASSWORD is required"))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxRetries < 1 {
		result = multierror.Append(result, fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries))
	}
	if c.RetryDelay < 0 {
		result = multierror.Append(result, fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay))
	}
	if c.RateLimitRequests <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate limit requests must be positive, got %d", c.RateLimitRequests))
	}
	if c.RateLimitPeriod <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate limit period must be positive, got %s", c.RateLimitPeriod))
	}
	if c.TokenLifetime <= 0 {
		result = multierror.Append(result, fmt.Errorf("token lifetime must be positive, got %s", c.TokenLifetime))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Redacted returns a copy with secrets masked, suitable for display.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "***"
	}
	if c.Token != "" {
		c.Token = logging.SanitizeToken(c.Token)
	}
	return c
}
