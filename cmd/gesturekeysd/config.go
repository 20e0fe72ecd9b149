package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gesturekeys/internal/ctlnode"
	"gesturekeys/internal/leds"
	"gesturekeys/internal/logging"
	"gesturekeys/internal/wakelock"
)

// Config is the top-level YAML configuration for the gesturekeys daemon.
//
// Defaults live in DefaultConfig and validation in Validate, so the rest of
// the daemon can assume a well-formed config.
type Config struct {
	Input        InputConfig        `yaml:"input"`
	Proximity    ProximityConfig    `yaml:"proximity"`
	ControlNodes ControlNodesConfig `yaml:"control_nodes"`
	WakeLock     WakeLockConfig     `yaml:"wakelock"`
	Settings     SettingsConfig     `yaml:"settings"`
	Torch        TorchConfig        `yaml:"torch"`
	Media        MediaConfig        `yaml:"media"`
	Display      DisplayConfig      `yaml:"display"`
	Host         HostConfig         `yaml:"host"`
	IPC          IPCConfig          `yaml:"ipc"`
	StateWS      StateWSConfig      `yaml:"state_ws"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type InputConfig struct {
	Devices []string `yaml:"devices"`  // gesture and slider input devices
	RetryMS int      `yaml:"retry_ms"` // reopen delay after a device disappears; 0 disables retry
}

type ProximityConfig struct {
	Device string `yaml:"device"` // evdev device with ABS_DISTANCE; empty disables gating
}

type ControlNodesConfig struct {
	KeysDisable string `yaml:"keys_disable"`
	Proximity   string `yaml:"proximity"`
}

type WakeLockConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Name       string `yaml:"name"`
	LockPath   string `yaml:"lock_path"`
	UnlockPath string `yaml:"unlock_path"`
}

type SettingsConfig struct {
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
}

type TorchConfig struct {
	PollMS  int            `yaml:"poll_ms"`
	Cameras []CameraConfig `yaml:"cameras"`
}

type CameraConfig struct {
	ID     string `yaml:"id"`
	LED    string `yaml:"led,omitempty"`
	Facing string `yaml:"facing"`
}

type MediaConfig struct {
	WsURL   string `yaml:"ws_url"` // media bridge; empty disables media gestures
	RetryMS int    `yaml:"retry_ms"`
}

type DisplayConfig struct {
	BlPowerPath string `yaml:"bl_power_path"` // empty disables display tracking
	PollMS      int    `yaml:"poll_ms"`
}

type HostConfig struct {
	WakeCommand      []string `yaml:"wake_command,omitempty"`
	CameraCommand    []string `yaml:"camera_command,omitempty"`
	PolicyCommand    []string `yaml:"policy_command,omitempty"`
	CommandTimeoutMS int      `yaml:"command_timeout_ms"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	Addr string `yaml:"addr"` // empty disables the HTTP server
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"` // auto, terminal or journal
}

// DefaultConfig returns a fully-populated Config with OnePlus 2 defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Devices: []string{"/dev/input/event1"},
			RetryMS: defaultInputRetryMS,
		},
		ControlNodes: ControlNodesConfig{
			KeysDisable: ctlnode.KeysDisablePath,
			Proximity:   ctlnode.ProximityNodePath,
		},
		WakeLock: WakeLockConfig{
			Enabled:    true,
			Name:       defaultWakeLockName,
			LockPath:   wakelock.DefaultLockPath,
			UnlockPath: wakelock.DefaultUnlockPath,
		},
		Settings: SettingsConfig{
			File:  defaultSettingsFile,
			Watch: true,
		},
		Torch: TorchConfig{
			PollMS: defaultTorchPollMS,
			Cameras: []CameraConfig{
				{ID: "0", LED: "/sys/class/leds/led:torch_0", Facing: "back"},
				{ID: "1", Facing: "front"},
			},
		},
		Media: MediaConfig{
			RetryMS: defaultMediaRetryMS,
		},
		Display: DisplayConfig{
			BlPowerPath: defaultBlPowerPath,
			PollMS:      defaultDisplayPollMS,
		},
		Host: HostConfig{
			CommandTimeoutMS: defaultCommandTimeoutMS,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocket,
		},
		StateWS: StateWSConfig{
			Addr: defaultStateWSAddr,
			Path: defaultStateWSPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: string(logging.OutputAuto),
		},
	}
}

// LoadConfigFile reads and parses a YAML config file over DefaultConfig.
// Unknown fields and trailing documents are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds flag values to apply on top of a loaded config. Each
// override is only applied if its pointer is non-nil.
type FlagOverrides struct {
	InputDevices  *string // comma separated
	ProximityDev  *string
	SettingsFile  *string
	MediaWsURL    *string
	IPCSocketPath *string
	StateWSAddr   *string
	LogLevel      *string
	LogOutput     *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevices != nil {
		var devs []string
		for _, d := range strings.Split(*o.InputDevices, ",") {
			if d = strings.TrimSpace(d); d != "" {
				devs = append(devs, d)
			}
		}
		cfg.Input.Devices = devs
	}
	if o.ProximityDev != nil {
		cfg.Proximity.Device = *o.ProximityDev
	}
	if o.SettingsFile != nil {
		cfg.Settings.File = *o.SettingsFile
	}
	if o.MediaWsURL != nil {
		cfg.Media.WsURL = *o.MediaWsURL
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateWSAddr != nil {
		cfg.StateWS.Addr = *o.StateWSAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogOutput != nil {
		cfg.Logging.Output = *o.LogOutput
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	if len(c.Input.Devices) == 0 {
		return errors.New("input.devices must not be empty")
	}
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.RetryMS < 0 {
		return errors.New("input.retry_ms must be >= 0")
	}

	if c.WakeLock.Enabled {
		if c.WakeLock.Name == "" || strings.ContainsAny(c.WakeLock.Name, " \t\n") {
			return errors.New("wakelock.name must be a non-empty word")
		}
		if c.WakeLock.LockPath == "" || c.WakeLock.UnlockPath == "" {
			return errors.New("wakelock.lock_path and wakelock.unlock_path must be set when wakelock.enabled is true")
		}
	}

	if c.Settings.File == "" {
		return errors.New("settings.file must not be empty")
	}

	if c.Torch.PollMS <= 0 {
		return errors.New("torch.poll_ms must be > 0")
	}
	seen := map[string]bool{}
	for i, cam := range c.Torch.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("torch.cameras[%d].id is empty", i)
		}
		if seen[cam.ID] {
			return fmt.Errorf("torch.cameras[%d]: duplicate id %q", i, cam.ID)
		}
		seen[cam.ID] = true
		if _, err := leds.ParseFacing(cam.Facing); err != nil {
			return fmt.Errorf("torch.cameras[%d].facing: %w", i, err)
		}
	}

	if c.Media.WsURL != "" && !strings.HasPrefix(c.Media.WsURL, "ws://") && !strings.HasPrefix(c.Media.WsURL, "wss://") {
		return errors.New("media.ws_url must start with ws:// or wss://")
	}
	if c.Media.RetryMS <= 0 {
		return errors.New("media.retry_ms must be > 0")
	}

	if c.Display.BlPowerPath != "" && c.Display.PollMS <= 0 {
		return errors.New("display.poll_ms must be > 0")
	}

	if c.Host.CommandTimeoutMS <= 0 {
		return errors.New("host.command_timeout_ms must be > 0")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	if c.StateWS.Addr != "" && !strings.HasPrefix(c.StateWS.Path, "/") {
		return errors.New("state_ws.path must start with /")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := logging.ParseOutput(c.Logging.Output); err != nil {
		return fmt.Errorf("logging.output: %w", err)
	}

	return nil
}

// Cameras converts the torch camera list for the LED service. Call after
// Validate.
func (c *Config) Cameras() []leds.Camera {
	out := make([]leds.Camera, 0, len(c.Torch.Cameras))
	for _, cam := range c.Torch.Cameras {
		facing, _ := leds.ParseFacing(cam.Facing)
		out = append(out, leds.Camera{ID: cam.ID, LED: cam.LED, Facing: facing})
	}
	return out
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
