package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 53, cfg.Port)
	assert.Equal(t, "/etc/authdns/zone.d/", cfg.ZoneDir)
	assert.Equal(t, "/var/lib/authdns/zones.bolt", cfg.SnapshotDB)
	assert.True(t, cfg.StrictGlue)
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("DNS_ENV", "dev")
	t.Setenv("DNS_LOG_LEVEL", "debug")
	t.Setenv("DNS_PORT", "9953")
	t.Setenv("DNS_ZONE_DIR", "/tmp/zone.d/")
	t.Setenv("DNS_SNAPSHOT_DB", "/tmp/zones.bolt")
	t.Setenv("DNS_MAX_ADDITIONAL_RECORDS", "4")
	t.Setenv("DNS_STRICT_GLUE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9953, cfg.Port)
	assert.Equal(t, "/tmp/zone.d/", cfg.ZoneDir)
	assert.Equal(t, "/tmp/zones.bolt", cfg.SnapshotDB)
	assert.EqualValues(t, 4, cfg.MaxAdditionalRecords)
	assert.False(t, cfg.StrictGlue)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("DNS_ENV", "staging")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("DNS_LOG_LEVEL", "trace")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("DNS_PORT", "99999")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PortNaN(t *testing.T) {
	t.Setenv("DNS_PORT", "not_a_number")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidZoneDir(t *testing.T) {
	t.Setenv("DNS_ZONE_DIR", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_WhenKoanfDefaultLoadFails(t *testing.T) {
	orig := defaultLoader
	defaultLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { defaultLoader = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "mocked error"))
}

func TestLoad_WhenKoanfEnvLoadFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { envLoader = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "mocked error"))
}

func TestDefaultLoader_LoadsDefaults(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, defaultLoader(k))

	var cfg AppConfig
	require.NoError(t, k.Unmarshal("", &cfg))

	assert.Equal(t, DEFAULT_APP_CONFIG.Env, cfg.Env)
	assert.Equal(t, DEFAULT_APP_CONFIG.LogLevel, cfg.LogLevel)
	assert.Equal(t, DEFAULT_APP_CONFIG.Port, cfg.Port)
	assert.Equal(t, DEFAULT_APP_CONFIG.ZoneDir, cfg.ZoneDir)
}
