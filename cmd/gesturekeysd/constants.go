package main

const version = "1.0.0"

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Defaults
const (
	defaultConfigPath       = "/etc/gesturekeys/config.yaml"
	defaultSettingsFile     = "/var/lib/gesturekeys/settings.yaml"
	defaultIPCSocket        = "/run/gesturekeys.sock"
	defaultStateWSAddr      = "127.0.0.1:3002"
	defaultStateWSPath      = "/ws/state"
	defaultWakeLockName     = "gesturekeys"
	defaultInputRetryMS     = 2000
	defaultTorchPollMS      = 500
	defaultDisplayPollMS    = 500
	defaultMediaRetryMS     = 2000
	defaultCommandTimeoutMS = 2000
	defaultBlPowerPath      = "/sys/class/backlight/panel0-backlight/bl_power"

	// snapshotInterval bounds how long a worker-side state change (torch,
	// proximity) waits before it reaches state clients.
	snapshotInterval = 250 // ms
)
