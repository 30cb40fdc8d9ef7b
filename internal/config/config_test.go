package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every PIPETERM_* variable for the duration of the test so
// the host environment cannot leak into it.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("lake-root", "", "")
	fs.String("listen-addr", "", "")
	fs.String("log-level", "", "")
	fs.Duration("query-timeout", 0, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLakeRoot(), cfg.LakeRoot)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "pipeterm", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Zero(t, cfg.QueryTimeout)
	assert.Zero(t, cfg.RateLimitRPS, "rate limiting is opt-in")
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfgFile := filepath.Join(dir, "pipeterm.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
lake_root: /from/file
listen_addr: ":9000"
log_level: warn
query_timeout: 30s
`), 0o644))

	t.Setenv("PIPETERM_LISTEN_ADDR", ":9100")
	t.Setenv("PIPETERM_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PIPETERM_RATE_LIMIT_RPS", "5")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--lake-root", dir}))

	cfg, err := Load(cfgFile, flags)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.LakeRoot, "flag beats file")
	assert.Equal(t, ":9100", cfg.ListenAddr, "env beats file")
	assert.Equal(t, "warn", cfg.LogLevel, "file beats default")
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.InDelta(t, 5, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PIPETERM_LOG_LEVEL", "debug")

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8000", cfg.ListenAddr)
}

func TestLoad_ExpandsHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PIPETERM_LAKE_ROOT", "~/lakes")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "lakes"), cfg.LakeRoot)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "does not exist")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			LakeRoot:           "/data",
			ListenAddr:         ":8000",
			LogFormat:          "text",
			RateLimitRPS:       10,
			RateLimitBurst:     10,
			CORSAllowedOrigins: []string{"*"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty lake root", mutate: func(c *Config) { c.LakeRoot = "" }, wantErr: "lake_root"},
		{name: "empty listen addr", mutate: func(c *Config) { c.ListenAddr = "" }, wantErr: "listen_addr"},
		{name: "negative timeout", mutate: func(c *Config) { c.QueryTimeout = -time.Second }, wantErr: "query_timeout must not be negative"},
		{name: "zero burst", mutate: func(c *Config) { c.RateLimitBurst = 0 }, wantErr: "rate_limit_burst"},
		{name: "zero burst with limiter off", mutate: func(c *Config) { c.RateLimitBurst = 0; c.RateLimitRPS = 0 }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "log_format"},
		{name: "wildcard cors in production", mutate: func(c *Config) { c.Env = "production" }, wantErr: "CORS wildcard"},
		{name: "explicit cors in production", mutate: func(c *Config) {
			c.Env = "production"
			c.CORSAllowedOrigins = []string{"https://app.example"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"debug": "DEBUG", "warn": "WARN", "warning": "WARN", "ERROR": "ERROR", "": "INFO", "bogus": "INFO",
	} {
		assert.Equal(t, want, (&Config{LogLevel: in}).SlogLevel().String(), in)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := &Config{LogFormat: "json", LogLevel: "warn", ServiceName: "pipeterm"}
	logger := cfg.NewLogger(&buf)

	logger.Info("dropped")
	logger.Warn("kept", "lake", "sales")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"service":"pipeterm"`)
}
