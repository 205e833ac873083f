package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies defaults and
// validates the result. Every missing required variable is reported at once.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), &missing); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config load: required environment variables not set: %s",
			strings.Join(missing, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

var durationType = reflect.TypeOf(time.Duration(0))

// envTags is the parsed tag set of one config field.
type envTags struct {
	name, alt, def, unit string
	required             bool
}

func tagsOf(f reflect.StructField) envTags {
	return envTags{
		name:     f.Tag.Get("env"),
		alt:      f.Tag.Get("envAlt"),
		def:      f.Tag.Get("default"),
		unit:     f.Tag.Get("unit"),
		required: f.Tag.Get("required") == "true",
	}
}

// lookup returns the primary variable, then the alternate, then the default.
// ok is false only when a required variable has no value.
func (t envTags) lookup() (value string, ok bool) {
	if v := os.Getenv(t.name); v != "" {
		return v, true
	}
	if t.alt != "" {
		if v := os.Getenv(t.alt); v != "" {
			return v, true
		}
	}
	return t.def, !t.required
}

// loadStruct walks nested config sections and fills tagged fields. Missing
// required names are appended to missing rather than returned, so one run
// reports all of them.
func loadStruct(v reflect.Value, missing *[]string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, missing); err != nil {
				return err
			}
			continue
		}

		tags := tagsOf(field)
		if tags.name == "" {
			continue
		}
		value, ok := tags.lookup()
		if !ok {
			*missing = append(*missing, tags.name)
			continue
		}
		if value == "" {
			continue
		}
		if err := setField(fv, value, tags.unit); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", tags.name, value, err)
		}
	}
	return nil
}

// setField parses value into field according to its type. Integer fields
// tagged unit:"bytes" also accept sizes such as "10MB" or "512KiB".
func setField(field reflect.Value, value, unit string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		parse := func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
		if unit == "bytes" {
			parse = parseByteSize
		}
		n, err := parse(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(value)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(value string) []string {
	out := []string{}
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var byteUnits = []struct {
	suffix string
	mult   int64
}{
	{"KIB", 1 << 10}, {"MIB", 1 << 20}, {"GIB", 1 << 30},
	{"KB", 1 << 10}, {"MB", 1 << 20}, {"GB", 1 << 30},
	{"B", 1},
}

var errNegativeSize = errors.New("size must not be negative")

// parseByteSize parses a plain byte count or a number with a K/M/G suffix.
// KB and KiB both mean 1024 bytes, matching how upload limits are usually
// written.
func parseByteSize(s string) (int64, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	for _, bu := range byteUnits {
		if strings.HasSuffix(u, bu.suffix) {
			u, mult = strings.TrimSpace(strings.TrimSuffix(u, bu.suffix)), bu.mult
			break
		}
	}
	n, err := strconv.ParseInt(u, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegativeSize
	}
	return n * mult, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	} else if c.Database.Driver() == "" {
		errs = append(errs, "DATABASE_URL must be a postgres:// URL or a sqlite: / file: path")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Import validation
	if c.Import.MaxBodySize <= 0 {
		errs = append(errs, "IMPORT_MAX_BODY_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.SubmitLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_SUBMIT must be positive when rate limiting is enabled")
	}

	// Security validation
	if len(c.Security.AdminTokens) == 0 {
		errs = append(errs, "ADMIN_TOKENS must contain at least one token")
	}
	for _, tok := range c.Security.AdminTokens {
		if len(tok) < 16 {
			errs = append(errs, "admin tokens must be at least 16 characters")
			break
		}
	}

	// Captcha validation
	if c.Captcha.Enabled && c.Captcha.Secret == "" {
		errs = append(errs, "TURNSTILE_SECRET is required when CAPTCHA_ENABLED is true")
	}
	if c.Captcha.Timeout <= 0 {
		errs = append(errs, "CAPTCHA_TIMEOUT must be positive")
	}

	// Evidence validation
	switch strings.ToLower(c.Evidence.Backend) {
	case "fs":
		if c.Evidence.Dir == "" {
			errs = append(errs, "EVIDENCE_DIR is required for the fs backend")
		}
	case "s3":
		if c.Evidence.Bucket == "" {
			errs = append(errs, "EVIDENCE_BUCKET is required for the s3 backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("EVIDENCE_BACKEND (%q) must be one of: fs, s3", c.Evidence.Backend))
	}
	if c.Evidence.MaxSize <= 0 {
		errs = append(errs, "EVIDENCE_MAX_SIZE must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Database URLs, admin tokens and bucket credentials are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], Driver: %q, MaxConns: %d, MinConns: %d}, ",
		c.Database.Driver(), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Import: {MaxBodySize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxBodySize, c.Import.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d, SubmitLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.SubmitLimit))
	b.WriteString(fmt.Sprintf("Security: {AdminTokens: [MASKED x%d]}, ", len(c.Security.AdminTokens)))
	b.WriteString(fmt.Sprintf("Evidence: {Backend: %q}, ", c.Evidence.Backend))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
