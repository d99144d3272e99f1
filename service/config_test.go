package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/trackguard/service/threat"
)

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	sc := &ServiceConfig{}
	require.NoError(t, sc.Init())

	assert.Equal(t, "medium", sc.ProtectionLevel)
	assert.Equal(t, "active", sc.DetectionMode)
	assert.Equal(t, Duration(2*time.Second), sc.PassiveInterval)
	assert.Equal(t, Duration(time.Second), sc.ActiveInterval)
	assert.Equal(t, Duration(500*time.Millisecond), sc.AggressiveInterval)
	assert.NotEmpty(t, sc.ListenAddr)
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	sc := &ServiceConfig{ProtectionLevel: "extreme"}
	require.ErrorIs(t, sc.Init(), threat.ErrInvalidConfig)

	sc = &ServiceConfig{DetectionMode: "turbo"}
	require.ErrorIs(t, sc.Init(), threat.ErrInvalidConfig)
}

func TestLoadServiceConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: "127.0.0.1:9000"
protection_level: maximum
detection_mode: aggressive
aggressive_interval: 250ms
`), 0o644))

	sc, err := LoadServiceConfig(path)
	require.NoError(t, err)
	require.NoError(t, sc.Init())

	assert.Equal(t, "127.0.0.1:9000", sc.ListenAddr)
	assert.Equal(t, "maximum", sc.ProtectionLevel)
	assert.Equal(t, "aggressive", sc.DetectionMode)
	assert.Equal(t, Duration(250*time.Millisecond), sc.AggressiveInterval)

	// Missing path falls back to defaults.
	sc, err = LoadServiceConfig("")
	require.NoError(t, err)
	require.NoError(t, sc.Init())
	assert.Equal(t, "medium", sc.ProtectionLevel)
}
