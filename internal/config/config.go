// Package config provides centralized configuration management for the
// directory service. Settings come from environment variables with defaults
// and are validated on startup so a misconfigured deployment fails fast.
package config

import (
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Captcha  CaptchaConfig
	Evidence EvidenceConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the store connection string (required).
	// postgres:// and postgresql:// select PostgreSQL; sqlite:, file: or a
	// path ending in .db select SQLite.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of idle connections (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Store drivers returned by DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Driver infers the store driver from the connection URL.
// An unrecognized URL returns the empty string.
func (c *DatabaseConfig) Driver() string {
	u := strings.ToLower(c.URL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(u, "sqlite:"), strings.HasPrefix(u, "file:"),
		strings.HasSuffix(u, ".db"), strings.HasSuffix(u, ".sqlite"), u == ":memory:":
		return DriverSQLite
	}
	return ""
}

// SQLitePath strips the sqlite: prefix so the URL can be handed to the driver.
func (c *DatabaseConfig) SQLitePath() string {
	p := c.URL
	if len(p) >= 7 && strings.EqualFold(p[:7], "sqlite:") {
		p = strings.TrimPrefix(p[7:], "//")
	}
	return p
}

// ImportConfig holds bulk CSV import settings.
type ImportConfig struct {
	// MaxBodySize is the maximum accepted import payload in bytes (default: 10MB)
	MaxBodySize int64 `env:"IMPORT_MAX_BODY_SIZE" default:"10MB" unit:"bytes"`

	// MaxConcurrent is the number of imports allowed to run at once (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a request waits for an import slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single import batch (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// SubmitLimit is requests per minute for the public submission form (default: 5)
	SubmitLimit int `env:"RATE_LIMIT_SUBMIT" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// AdminTokens are the bearer tokens accepted on /api/admin routes.
	// ADMIN_TOKEN is honored for single-token deployments.
	AdminTokens []string `env:"ADMIN_TOKENS" envAlt:"ADMIN_TOKEN" required:"true"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// CaptchaConfig holds settings for the submission form challenge.
type CaptchaConfig struct {
	// Enabled turns verification off for local development only (default: true)
	Enabled bool `env:"CAPTCHA_ENABLED" default:"true"`

	Secret    string        `env:"TURNSTILE_SECRET" envAlt:"CAPTCHA_SECRET"`
	VerifyURL string        `env:"CAPTCHA_VERIFY_URL" default:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
	Timeout   time.Duration `env:"CAPTCHA_TIMEOUT" default:"5s"`
}

// EvidenceConfig selects and configures the evidence bucket.
type EvidenceConfig struct {
	// Backend is fs or s3 (default: fs)
	Backend string `env:"EVIDENCE_BACKEND" default:"fs"`

	// Dir is the root directory of the fs backend (default: ./data/evidence)
	Dir string `env:"EVIDENCE_DIR" default:"./data/evidence"`

	Bucket          string `env:"EVIDENCE_BUCKET"`
	Endpoint        string `env:"EVIDENCE_ENDPOINT"`
	Region          string `env:"EVIDENCE_REGION" default:"auto"`
	AccessKeyID     string `env:"EVIDENCE_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"EVIDENCE_SECRET_ACCESS_KEY"`

	// MaxSize is the largest accepted submission form in bytes (default: 15MB)
	MaxSize int64 `env:"EVIDENCE_MAX_SIZE" default:"15MB" unit:"bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
