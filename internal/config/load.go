package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the variable that overrides the config file location.
const EnvConfigFile = "PWNDOC_CONFIG_FILE"

// DefaultDir returns ~/.pwndoc-mcp.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pwndoc-mcp"
	}
	return filepath.Join(home, ".pwndoc-mcp")
}

// ResolvePath returns the config file to use: explicit, then
// PWNDOC_CONFIG_FILE, then the first existing default location. When none
// exists the default YAML path is returned with found=false.
func ResolvePath(explicit string) (path string, found bool) {
	if explicit != "" {
		return expandHome(explicit), fileExists(expandHome(explicit))
	}
	if env := os.Getenv(EnvConfigFile); env != "" {
		return expandHome(env), fileExists(expandHome(env))
	}
	dir := DefaultDir()
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p, true
		}
	}
	return filepath.Join(dir, "config.yaml"), false
}

// Load builds a Config from defaults, the config file at path (resolved
// with ResolvePath) and the environment. It does not validate.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	resolved, found := ResolvePath(path)
	if found {
		fc, err := readFile(resolved)
		if err != nil {
			return cfg, err
		}
		if err := fc.apply(&cfg); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", resolved, err)
		}
	} else if path != "" {
		return cfg, fmt.Errorf("config file %s not found", resolved)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// File is the on-disk representation. Durations are expressed in seconds
// to stay compatible with existing pwndoc-mcp config files.
type File struct {
	URL               *string  `yaml:"url,omitempty" json:"url,omitempty"`
	Username          *string  `yaml:"username,omitempty" json:"username,omitempty"`
	Password          *string  `yaml:"password,omitempty" json:"password,omitempty"`
	Token             *string  `yaml:"token,omitempty" json:"token,omitempty"`
	VerifySSL         *bool    `yaml:"verify_ssl,omitempty" json:"verify_ssl,omitempty"`
	Timeout           *float64 `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxRetries        *int     `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryDelay        *float64 `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
	MaxRetryDelay     *float64 `yaml:"max_retry_delay,omitempty" json:"max_retry_delay,omitempty"`
	RateLimitRequests *int     `yaml:"rate_limit_requests,omitempty" json:"rate_limit_requests,omitempty"`
	RateLimitPeriod   *float64 `yaml:"rate_limit_period,omitempty" json:"rate_limit_period,omitempty"`
	TokenLifetime     *float64 `yaml:"token_lifetime,omitempty" json:"token_lifetime,omitempty"`
	AuthScheme        *string  `yaml:"auth_scheme,omitempty" json:"auth_scheme,omitempty"`
	LogLevel          *string  `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	LogFile           *string  `yaml:"log_file,omitempty" json:"log_file,omitempty"`
	LogFormat         *string  `yaml:"log_format,omitempty" json:"log_format,omitempty"`
}

// ToFile converts cfg into its on-disk form with every field set.
func ToFile(cfg Config) File {
	return File{
		URL:               &cfg.URL,
		Username:          &cfg.Username,
		Password:          &cfg.Password,
		Token:             &cfg.Token,
		VerifySSL:         &cfg.VerifySSL,
		Timeout:           seconds(cfg.Timeout),
		MaxRetries:        &cfg.MaxRetries,
		RetryDelay:        seconds(cfg.RetryDelay),
		MaxRetryDelay:     seconds(cfg.MaxRetryDelay),
		RateLimitRequests: &cfg.RateLimitRequests,
		RateLimitPeriod:   seconds(cfg.RateLimitPeriod),
		TokenLifetime:     seconds(cfg.TokenLifetime),
		AuthScheme:        &cfg.AuthScheme,
		LogLevel:          &cfg.LogLevel,
		LogFile:           &cfg.LogFile,
		LogFormat:         &cfg.LogFormat,
	}
}

func (f File) apply(cfg *Config) error {
	setString(&cfg.URL, f.URL)
	setString(&cfg.Username, f.Username)
	setString(&cfg.Password, f.Password)
	setString(&cfg.Token, f.Token)
	setString(&cfg.AuthScheme, f.AuthScheme)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogFile, f.LogFile)
	setString(&cfg.LogFormat, f.LogFormat)
	if f.VerifySSL != nil {
		cfg.VerifySSL = *f.VerifySSL
	}
	if f.MaxRetries != nil {
		cfg.MaxRetries = *f.MaxRetries
	}
	if f.RateLimitRequests != nil {
		cfg.RateLimitRequests = *f.RateLimitRequests
	}

	durations := []struct {
		name string
		dst  *time.Duration
		src  *float64
	}{
		{"timeout", &cfg.Timeout, f.Timeout},
		{"retry_delay", &cfg.RetryDelay, f.RetryDelay},
		{"max_retry_delay", &cfg.MaxRetryDelay, f.MaxRetryDelay},
		{"rate_limit_period", &cfg.RateLimitPeriod, f.RateLimitPeriod},
		{"token_lifetime", &cfg.TokenLifetime, f.TokenLifetime},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		if *d.src < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
		*d.dst = time.Duration(*d.src * float64(time.Second))
	}
	return nil
}

func readFile(path string) (File, error) {
	var fc File
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("failed to read config file: %w", err)
	}
	// JSON is a subset of YAML, so one decoder serves both formats.
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

// Save writes cfg to path as YAML, or JSON when path ends in .json, with
// owner-only permissions.
func Save(cfg Config, path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(ToFile(cfg), strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// env mirrors the supported PWNDOC_* variables. Durations are strings so
// they accept both plain seconds ("30") and Go durations ("30s"). A zero
// integer counts as unset.
type env struct {
	URL               string `env:"PWNDOC_URL"`
	Username          string `env:"PWNDOC_USERNAME"`
	Password          string `env:"PWNDOC_PASSWORD"`
	Token             string `env:"PWNDOC_TOKEN"`
	VerifySSL         string `env:"PWNDOC_VERIFY_SSL"`
	Timeout           string `env:"PWNDOC_TIMEOUT"`
	MaxRetries        int    `env:"PWNDOC_MAX_RETRIES"`
	RetryDelay        string `env:"PWNDOC_RETRY_DELAY"`
	MaxRetryDelay     string `env:"PWNDOC_MAX_RETRY_DELAY"`
	RateLimitRequests int    `env:"PWNDOC_RATE_LIMIT_REQUESTS"`
	RateLimitPeriod   string `env:"PWNDOC_RATE_LIMIT_PERIOD"`
	TokenLifetime     string `env:"PWNDOC_TOKEN_LIFETIME"`
	AuthScheme        string `env:"PWNDOC_AUTH_SCHEME"`
	LogLevel          string `env:"PWNDOC_LOG_LEVEL"`
	LogFile           string `env:"PWNDOC_LOG_FILE"`
	LogFormat         string `env:"PWNDOC_LOG_FORMAT"`
}

func applyEnv(cfg *Config) error {
	var e env
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to decode environment: %w", err)
	}

	setNonEmpty(&cfg.URL, e.URL)
	setNonEmpty(&cfg.Username, e.Username)
	setNonEmpty(&cfg.Password, e.Password)
	setNonEmpty(&cfg.Token, e.Token)
	setNonEmpty(&cfg.AuthScheme, e.AuthScheme)
	setNonEmpty(&cfg.LogLevel, e.LogLevel)
	setNonEmpty(&cfg.LogFile, e.LogFile)
	setNonEmpty(&cfg.LogFormat, e.LogFormat)

	if e.VerifySSL != "" {
		cfg.VerifySSL = parseBool(e.VerifySSL)
	}
	if e.MaxRetries != 0 {
		cfg.MaxRetries = e.MaxRetries
	}
	if e.RateLimitRequests != 0 {
		cfg.RateLimitRequests = e.RateLimitRequests
	}

	durations := []struct {
		name string
		dst  *time.Duration
		raw  string
	}{
		{"PWNDOC_TIMEOUT", &cfg.Timeout, e.Timeout},
		{"PWNDOC_RETRY_DELAY", &cfg.RetryDelay, e.RetryDelay},
		{"PWNDOC_MAX_RETRY_DELAY", &cfg.MaxRetryDelay, e.MaxRetryDelay},
		{"PWNDOC_RATE_LIMIT_PERIOD", &cfg.RateLimitPeriod, e.RateLimitPeriod},
		{"PWNDOC_TOKEN_LIFETIME", &cfg.TokenLifetime, e.TokenLifetime},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := ParseSeconds(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// ParseSeconds parses either a number of seconds ("1.5") or a Go duration ("1500ms").
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setNonEmpty(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func seconds(d time.Duration) *float64 {
	s := d.Seconds()
	return &s
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
