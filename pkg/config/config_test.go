package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port      int      `env:"TEST_SHOP_PORT" envDefault:"8010"`
	Namespace string   `env:"TEST_SHOP_NAMESPACE" envDefault:"default"`
	Brokers   []string `env:"TEST_SHOP_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Events    bool     `env:"TEST_SHOP_EVENTS" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.False(t, cfg.Events)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_SHOP_PORT", "9090")
	t.Setenv("TEST_SHOP_NAMESPACE", "kiosk-7")
	t.Setenv("TEST_SHOP_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TEST_SHOP_EVENTS", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "kiosk-7", cfg.Namespace)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.True(t, cfg.Events)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_SHOP_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_ReportsEveryInvalidSetting(t *testing.T) {
	t.Setenv("TEST_SHOP_PORT", "eighty")
	t.Setenv("TEST_SHOP_EVENTS", "maybe")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
	assert.Contains(t, err.Error(), "Port")
	assert.Contains(t, err.Error(), "Events")
}
