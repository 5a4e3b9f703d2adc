package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/casedesk/config"
)

func TestBofryLoader_LoadDefaults(t *testing.T) {
	t.Setenv("CASEDESK_JWT_SECRET_KEY", "test-secret")

	cfg := &config.Config{}
	require.NoError(t, config.NewBofryLoader().Load(cfg))

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.Recovery)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "test-secret", cfg.JWT.SecretKey)
}

func TestBofryLoader_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, `
server:
  address: ":7777"
logger:
  level: "error"
jwt:
  secret_key: "yaml-key"
  issuer: "yaml-issuer"
`)
	t.Setenv("CASEDESK_JWT_SECRET_KEY", "env-override-key")

	cfg := &config.Config{}
	require.NoError(t, config.NewBofryLoader().WithYAMLFile(path).Load(cfg))

	assert.Equal(t, ":7777", cfg.Server.Address)
	assert.Equal(t, "error", cfg.Logger.Level)
	assert.Equal(t, "yaml-issuer", cfg.JWT.Issuer)
	assert.Equal(t, "env-override-key", cfg.JWT.SecretKey)
}

func TestBofryLoader_MissingSecret(t *testing.T) {
	err := config.NewBofryLoader().WithEnvPrefix("CASEDESK_BOFRY_EMPTY_").Load(&config.Config{})
	assert.ErrorContains(t, err, "JWT secret key is required")
}
