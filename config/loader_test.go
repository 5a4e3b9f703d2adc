package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/casedesk/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.Recovery)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Encoding)

	assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
	assert.Equal(t, int64(64*1024), cfg.WebSocket.MaxMessageSize)

	assert.Equal(t, 8*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "casedesk", cfg.JWT.Issuer)

	assert.Equal(t, []string{"/", "/recovery"}, cfg.Navigation.PublicPaths)
	assert.Equal(t, "/", cfg.Navigation.LoginPath)
	assert.Equal(t, "app", cfg.Navigation.MountID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{"missing secret", func(c *config.Config) { c.JWT.SecretKey = "" }, "secret key"},
		{"bad ttl", func(c *config.Config) { c.JWT.AccessTokenTTL = 0 }, "TTL"},
		{"ping after pong", func(c *config.Config) { c.WebSocket.PingPeriod = time.Hour }, "ping period"},
		{"no mount id", func(c *config.Config) { c.Navigation.MountID = "" }, "mount id"},
		{"user without name", func(c *config.Config) {
			c.Users = []config.UserConfig{{PasswordHash: "x"}}
		}, "username is required"},
		{"user without hash", func(c *config.Config) {
			c.Users = []config.UserConfig{{Username: "ana"}}
		}, "password_hash"},
		{"duplicate user", func(c *config.Config) {
			c.Users = []config.UserConfig{{Username: "ana", PasswordHash: "x"}, {Username: "ana", PasswordHash: "y"}}
		}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.JWT.SecretKey = "secret"
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := config.DefaultConfig()
	cfg.JWT.SecretKey = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestSimpleLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("CASEDESK_SERVER_ADDRESS", ":9090")
	t.Setenv("CASEDESK_SERVER_GZIP", "false")
	t.Setenv("CASEDESK_SERVER_SHUTDOWN_TIMEOUT", "20s")
	t.Setenv("CASEDESK_LOGGER_LEVEL", "debug")
	t.Setenv("CASEDESK_WEBSOCKET_READ_BUFFER_SIZE", "2048")
	t.Setenv("CASEDESK_WEBSOCKET_NAVIGATION_RATE", "2.5")
	t.Setenv("CASEDESK_JWT_SECRET_KEY", "test-secret-key")
	t.Setenv("CASEDESK_JWT_ISSUER", "test-issuer")
	t.Setenv("CASEDESK_NAVIGATION_PUBLIC_PATHS", "/,/recovery,/about")

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().Load(cfg))

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.False(t, cfg.Server.GZip)
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 2048, cfg.WebSocket.ReadBufferSize)
	assert.Equal(t, 2.5, cfg.WebSocket.NavigationRate)
	assert.Equal(t, "test-secret-key", cfg.JWT.SecretKey)
	assert.Equal(t, "test-issuer", cfg.JWT.Issuer)
	assert.Equal(t, []string{"/", "/recovery", "/about"}, cfg.Navigation.PublicPaths)
}

func TestSimpleLoader_WithYAML(t *testing.T) {
	path := writeFile(t, `
server:
  address: ":8888"
  gzip: false
  shutdown_timeout: 5s
logger:
  level: "warn"
jwt:
  secret_key: "yaml-secret"
  issuer: "yaml-issuer"
navigation:
  public_paths: ["/", "/recovery", "/help"]
users:
  - username: ana
    password_hash: "$2a$10$abcdefghijklmnopqrstuv"
    role: data_entry
    permissions: [view_guests]
`)

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().WithYAMLFile(path).Load(cfg))

	assert.Equal(t, ":8888", cfg.Server.Address)
	assert.False(t, cfg.Server.GZip)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "yaml-secret", cfg.JWT.SecretKey)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"/", "/recovery", "/help"}, cfg.Navigation.PublicPaths)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "ana", cfg.Users[0].Username)
	assert.Equal(t, []string{"view_guests"}, cfg.Users[0].Permissions)
}

func TestSimpleLoader_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, `
server:
  address: ":7777"
logger:
  level: "error"
jwt:
  secret_key: "test-key"
`)
	t.Setenv("CASEDESK_SERVER_ADDRESS", ":9999")

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().WithYAMLFile(path).Load(cfg))

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "error", cfg.Logger.Level)
}

func TestSimpleLoader_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CASEDESK_JWT_SECRET_KEY", "secret")

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().WithYAMLFile(filepath.Join(t.TempDir(), "absent.yaml")).Load(cfg))
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestSimpleLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_SHUTDOWN_TIMEOUT", "25s")
	t.Setenv("MYAPP_JWT_SECRET_KEY", "myapp-secret")

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().WithEnvPrefix("MYAPP_").Load(cfg))
	assert.Equal(t, 25*time.Second, cfg.Server.ShutdownTimeout)
}

func TestSimpleLoader_BadEnvValue(t *testing.T) {
	t.Setenv("CASEDESK_JWT_SECRET_KEY", "secret")
	t.Setenv("CASEDESK_SERVER_READ_TIMEOUT", "soon")

	err := config.NewSimpleLoader().Load(&config.Config{})
	assert.Error(t, err)
}

func TestSimpleLoader_ValidationFails(t *testing.T) {
	err := config.NewSimpleLoader().WithEnvPrefix("CASEDESK_TEST_EMPTY_").Load(&config.Config{})
	assert.ErrorContains(t, err, "JWT secret key is required")
}
