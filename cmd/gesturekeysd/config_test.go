package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturekeys/internal/keyhandler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
input:
  devices: [/dev/input/event3]
media:
  ws_url: ws://127.0.0.1:3003/media
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"/dev/input/event3"}, cfg.Input.Devices)
	assert.Equal(t, "ws://127.0.0.1:3003/media", cfg.Media.WsURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, defaultIPCSocket, cfg.IPC.SocketPath)
	assert.Equal(t, defaultMediaRetryMS, cfg.Media.RetryMS)
}

func TestLoadConfigFileRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "input:\n  device: /dev/input/event1\n")
	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestLoadConfigFileRejectsTrailingDocument(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n---\nlogging:\n  level: debug\n")
	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing document")
}

func TestFlagOverridesApply(t *testing.T) {
	cfg := DefaultConfig()
	devices := " /dev/input/event1, ,/dev/input/event4 "
	prox := "/dev/input/event2"
	level := "warn"

	FlagOverrides{
		InputDevices: &devices,
		ProximityDev: &prox,
		LogLevel:     &level,
	}.Apply(&cfg)

	assert.Equal(t, []string{"/dev/input/event1", "/dev/input/event4"}, cfg.Input.Devices)
	assert.Equal(t, prox, cfg.Proximity.Device)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, defaultSettingsFile, cfg.Settings.File)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no devices", func(c *Config) { c.Input.Devices = nil }, "input.devices"},
		{"bad wakelock name", func(c *Config) { c.WakeLock.Name = "two words" }, "wakelock.name"},
		{"disabled wakelock skips name", func(c *Config) { c.WakeLock.Enabled = false; c.WakeLock.Name = "" }, ""},
		{"duplicate camera", func(c *Config) { c.Torch.Cameras[1].ID = c.Torch.Cameras[0].ID }, "duplicate id"},
		{"bad facing", func(c *Config) { c.Torch.Cameras[0].Facing = "sideways" }, "facing"},
		{"media scheme", func(c *Config) { c.Media.WsURL = "http://localhost" }, "media.ws_url"},
		{"state path", func(c *Config) { c.StateWS.Path = "ws" }, "state_ws.path"},
		{"state disabled ignores path", func(c *Config) { c.StateWS.Addr = ""; c.StateWS.Path = "" }, ""},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigCameras(t *testing.T) {
	cfg := DefaultConfig()
	cams := cfg.Cameras()
	require.Len(t, cams, 2)
	assert.Equal(t, keyhandler.LensFacingBack, cams[0].Facing)
	assert.Equal(t, "/sys/class/leds/led:torch_0", cams[0].LED)
}
