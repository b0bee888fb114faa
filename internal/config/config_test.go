package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// env возвращает getenv поверх map
func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadClient_Defaults(t *testing.T) {
	cfg, rest, err := LoadClient([]string{"watch", "tags", "--once"}, env(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultClient(), *cfg)
	// Флаги команды не разбираются глобальным набором
	assert.Equal(t, []string{"watch", "tags", "--once"}, rest)
}

func TestLoadClient_Precedence(t *testing.T) {
	path := writeConfig(t, `
server_url: https://desk.example.com
db_path: /var/lib/livedesk/client.db
debounce: 300ms
log_level: info
`)

	tests := []struct {
		name string
		env  map[string]string
		want Client
		args []string
	}{
		{
			name: "file overrides defaults",
			args: []string{"--config", path, "status"},
			want: Client{
				ServerURL: "https://desk.example.com",
				DBPath:    "/var/lib/livedesk/client.db",
				LogLevel:  "info",
				Debounce:  300 * time.Millisecond,
			},
		},
		{
			name: "flags override file regardless of position",
			args: []string{"--debounce", "1s", "--config", path, "--log-level", "debug", "status"},
			want: Client{
				ServerURL: "https://desk.example.com",
				DBPath:    "/var/lib/livedesk/client.db",
				LogLevel:  "debug",
				Debounce:  time.Second,
			},
		},
		{
			name: "env overrides flags",
			args: []string{"--config", path, "--server", "http://localhost:9090", "status"},
			env:  map[string]string{"LIVEDESK_SERVER_URL": "https://other.example.com", "LIVEDESK_DB_PATH": "x.db"},
			want: Client{
				ServerURL: "https://other.example.com",
				DBPath:    "x.db",
				LogLevel:  "info",
				Debounce:  300 * time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, rest, err := LoadClient(tt.args, env(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
			assert.Equal(t, []string{"status"}, rest)
		})
	}
}

func TestLoadClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
		args    []string
	}{
		{name: "missing file", args: []string{"--config", "/nonexistent/config.yml"}, wantErr: "failed to read config"},
		{name: "bad url", args: []string{"--server", "localhost:8080"}, wantErr: "invalid server URL"},
		{name: "bad level", args: []string{"--log-level", "loud"}, wantErr: "invalid log level"},
		{name: "negative debounce", args: []string{"--debounce", "-1s"}, wantErr: "debounce must not be negative"},
		{name: "unknown flag", args: []string{"--master-password", "x"}, wantErr: "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadClient(tt.args, env(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadClient_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server_url: [unclosed")

	_, _, err := LoadClient([]string{"--config", path}, env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadServer(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
page_size: 50
broker:
  kind: nats
  nats_url: nats://localhost:4222
`)

	cfg, rest, err := LoadServer(
		[]string{"--config", path, "--rate-limit", "0", "serve"},
		env(map[string]string{"LIVEDESK_JWT_SECRET": testSecret}),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"serve"}, rest)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, BrokerNATS, cfg.Broker.Kind)
	assert.Equal(t, "nats://localhost:4222", cfg.Broker.NATSURL)
	assert.Equal(t, testSecret, cfg.JWTSecret)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestServer_Validate(t *testing.T) {
	valid := func() Server {
		cfg := DefaultServer()
		cfg.JWTSecret = testSecret
		return cfg
	}

	tests := []struct {
		modify  func(*Server)
		name    string
		wantErr string
	}{
		{name: "valid", modify: func(*Server) {}},
		{name: "short secret", modify: func(c *Server) { c.JWTSecret = "secret" }, wantErr: "JWT secret must be at least 32"},
		{name: "zero ttl", modify: func(c *Server) { c.TokenTTL = 0 }, wantErr: "token TTL must be positive"},
		{name: "page size", modify: func(c *Server) { c.PageSize = 0 }, wantErr: "page size"},
		{name: "negative rate", modify: func(c *Server) { c.RateLimit = -1 }, wantErr: "rate limit"},
		{name: "nats without url", modify: func(c *Server) { c.Broker.Kind = BrokerNATS }, wantErr: "requires nats_url"},
		{name: "unknown broker", modify: func(c *Server) { c.Broker.Kind = "kafka" }, wantErr: "unknown broker"},
		{name: "empty addr", modify: func(c *Server) { c.Addr = "" }, wantErr: "listen address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "warn", true)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "collection", "tags")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json output expected: %s", out)
	assert.Contains(t, out, `"collection":"tags"`)

	_, err = NewLogger(&buf, "verbose", false)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
