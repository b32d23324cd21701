package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiltlab/bringup/config"
	"github.com/tiltlab/bringup/util/conf"
)

func parse(t *testing.T) config.Config {
	t.Helper()

	cfg, err := conf.Parse[config.Config](conf.ParseOptions{
		Defaults:  config.DefaultConfig,
		EnvPrefix: "BRINGUP_",
	})
	require.NoError(t, err)

	return cfg
}

func TestParse_Defaults(t *testing.T) {
	cfg := parse(t)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/dev/ttyACM0", cfg.Run.Device.Port)
	assert.Equal(t, 30*time.Second, cfg.Run.Device.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Run.Device.Interval)

	assert.Equal(t, "cargo", cfg.Run.Flash.Command)
	assert.Equal(t, []string{"embed", "--release"}, cfg.Run.Flash.Args)
	assert.Equal(t, "board", cfg.Run.Flash.Dir)

	assert.Equal(t, "blender.py", cfg.Run.Clipboard.Script)

	assert.Equal(t, "forwarder", cfg.Run.Forwarder.Label)
	assert.Equal(t, time.Second, cfg.Run.Forwarder.Grace)
	assert.Equal(t, 3*time.Second, cfg.Run.Viewer.Grace)

	// consumers are opt-in, never defaulted on
	assert.False(t, cfg.Run.Blender)
	assert.False(t, cfg.Run.Visualizer)
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("BRINGUP_RUN__DEVICE__PORT", "/dev/ttyUSB1")
	t.Setenv("BRINGUP_RUN__DEVICE__TIMEOUT", "5s")
	t.Setenv("BRINGUP_LOG_LEVEL", "debug")

	cfg, err := conf.Parse[config.Config](conf.ParseOptions{
		Defaults:  config.DefaultConfig,
		EnvPrefix: "BRINGUP_",
	})
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Run.Device.Port)
	assert.Equal(t, 5*time.Second, cfg.Run.Device.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)

	// untouched keys keep their defaults
	assert.Equal(t, 500*time.Millisecond, cfg.Run.Device.Interval)
}
