// Package config loads server configuration from defaults, an optional YAML
// file, a .env file, PIPETERM_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of every environment variable the server reads.
const EnvPrefix = "PIPETERM_"

// Config holds the configuration of the HTTP server.
type Config struct {
	LakeRoot    string `koanf:"lake_root"`    // directory holding one sub-directory per lake
	ListenAddr  string `koanf:"listen_addr"`  // HTTP listen address (default ":8000")
	ServiceName string `koanf:"service_name"` // shown in the root banner
	LogLevel    string `koanf:"log_level"`    // debug, info, warn, error (default "info")
	LogFormat   string `koanf:"log_format"`   // text (default) or json
	Env         string `koanf:"env"`          // "development" (default) or "production"

	// QueryTimeout bounds each statement. Zero means no bound.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// Rate limiting
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`   // sustained requests per client IP; 0 (default) disables
	RateLimitBurst int     `koanf:"rate_limit_burst"` // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"` // default ["*"]

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `koanf:"-"`
}

// DefaultLakeRoot returns ~/.local/share/pipeterm_lake, or a relative
// pipeterm_lake directory when the home directory is unknown.
func DefaultLakeRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pipeterm_lake"
	}
	return filepath.Join(home, ".local", "share", "pipeterm_lake")
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"lake_root":            DefaultLakeRoot(),
		"listen_addr":          ":8000",
		"service_name":         "pipeterm",
		"log_level":            "info",
		"log_format":           "text",
		"env":                  "development",
		"query_timeout":        time.Duration(0),
		"rate_limit_rps":       0.0,
		"rate_limit_burst":     200,
		"cors_allowed_origins": []string{"*"},
		"read_timeout":         15 * time.Second,
		"write_timeout":        5 * time.Minute,
		"shutdown_timeout":     10 * time.Second,
	}
}

// Load builds the configuration. Precedence, highest first: flags that were
// explicitly set, PIPETERM_* environment variables (including those set from
// .env), the YAML file at cfgFile, defaults. An empty cfgFile skips the file.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	// Transform: PIPETERM_LAKE_ROOT -> lake_root
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.LakeRoot = expandHome(strings.TrimSpace(cfg.LakeRoot))
	cfg.CORSAllowedOrigins = compactNonEmpty(cfg.CORSAllowedOrigins)
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pipeterm"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if info, err := os.Stat(cfg.LakeRoot); err != nil || !info.IsDir() {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("lake root %s does not exist yet; every lake will be reported as not found", cfg.LakeRoot))
	}

	return &cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []error
	if c.LakeRoot == "" {
		errs = append(errs, errors.New("lake_root must not be empty"))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}
	for name, d := range map[string]time.Duration{
		"query_timeout":    c.QueryTimeout,
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative (got %s)", name, d))
		}
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("rate_limit_burst must be at least 1 when rate limiting is enabled (got %d)", c.RateLimitBurst))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat))
	}
	if c.IsProduction() && len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
		errs = append(errs, errors.New("CORS wildcard (*) is not allowed in production (env=production)"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// NewLogger creates the process logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var h slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", c.ServiceName)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// compactNonEmpty flattens comma-separated entries, as they arrive from a
// single environment variable, and drops blanks.
func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
