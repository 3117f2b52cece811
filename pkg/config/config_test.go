package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	Origins []string      `env:"TEST_CFG_ORIGINS" envDefault:"*" envSeparator:","`
	TTL     time.Duration `env:"TEST_CFG_TTL" envDefault:"1h"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.Origins)
	assert.Equal(t, time.Hour, cfg.TTL)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_ORIGINS", "http://a,http://b")
	t.Setenv("TEST_CFG_TTL", "90s")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins)
	assert.Equal(t, 90*time.Second, cfg.TTL)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type checkedConfig struct {
	Secret string `env:"TEST_CFG_SECRET"`
}

func (c *checkedConfig) Validate() error {
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	return nil
}

func TestLoad_RunsValidate(t *testing.T) {
	var cfg checkedConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config: secret is required")

	t.Setenv("TEST_CFG_SECRET", "x")
	require.NoError(t, Load(&cfg))
}
