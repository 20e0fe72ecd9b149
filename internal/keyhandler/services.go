package keyhandler

import (
	"fmt"
	"time"
)

// ============================================================================
// Host contract types
// ============================================================================

// KeyAction is the phase of a key event.
type KeyAction int

const (
	ActionDown KeyAction = iota
	ActionUp
)

func (a KeyAction) String() string {
	switch a {
	case ActionDown:
		return "down"
	case ActionUp:
		return "up"
	default:
		return fmt.Sprintf("KeyAction(%d)", int(a))
	}
}

// KeyEvent is a raw key event as delivered by the host.
type KeyEvent struct {
	ScanCode int
	Action   KeyAction
}

// ============================================================================
// Consumed services
// ============================================================================
// Every service is optional. A nil service disables the feature that depends
// on it (no torch, no media dispatch, no proximity gating) without failing.
// ============================================================================

// LensFacing is the direction a camera lens faces.
type LensFacing int

const (
	LensFacingUnknown LensFacing = iota
	LensFacingFront
	LensFacingBack
	LensFacingExternal
)

// CameraCharacteristics is the subset of camera metadata the torch
// controller needs.
type CameraCharacteristics struct {
	FlashAvailable bool
	LensFacing     LensFacing
}

// TorchCallback receives torch state changes made by any client.
type TorchCallback interface {
	OnTorchModeChanged(cameraID string, enabled bool)
	OnTorchModeUnavailable(cameraID string)
}

// CameraService enumerates cameras and controls their torch.
type CameraService interface {
	CameraIDs() ([]string, error)
	Characteristics(cameraID string) (CameraCharacteristics, error)
	SetTorchMode(cameraID string, enabled bool) error
	RegisterTorchCallback(cb TorchCallback)
}

// Android media key codes forwarded to the media session.
const (
	KeycodeMediaPlayPause = 85
	KeycodeMediaNext      = 87
	KeycodeMediaPrevious  = 88
)

// MediaKeyEvent is a synthesized media button event.
type MediaKeyEvent struct {
	DownTime  time.Time
	EventTime time.Time
	Action    KeyAction
	KeyCode   int
}

// MediaSession is the active media session layer.
type MediaSession interface {
	IsMusicActive() bool
	SendMediaButtonEvent(ev MediaKeyEvent, needWakeLock bool) error
}

// ZenMode is the system interruption filter.
type ZenMode int

const (
	ZenModeOff ZenMode = iota
	ZenModeImportantInterruptions
	ZenModeNoInterruptions
	ZenModeAlarms
)

func (m ZenMode) String() string {
	switch m {
	case ZenModeOff:
		return "off"
	case ZenModeImportantInterruptions:
		return "important_interruptions"
	case ZenModeNoInterruptions:
		return "no_interruptions"
	case ZenModeAlarms:
		return "alarms"
	default:
		return fmt.Sprintf("ZenMode(%d)", int(m))
	}
}

// RingerMode is the audio ringer mode.
type RingerMode int

const (
	RingerModeSilent RingerMode = iota
	RingerModeVibrate
	RingerModeNormal
)

func (m RingerMode) String() string {
	switch m {
	case RingerModeSilent:
		return "silent"
	case RingerModeVibrate:
		return "vibrate"
	case RingerModeNormal:
		return "normal"
	default:
		return fmt.Sprintf("RingerMode(%d)", int(m))
	}
}

type ZenController interface {
	SetZenMode(mode ZenMode) error
}

type RingerController interface {
	SetRingerMode(mode RingerMode) error
}

// Subscription is a handle returned by an observer registration.
type Subscription interface {
	Close()
}

// SettingsObserver is notified after a setting changed.
type SettingsObserver interface {
	OnSettingChanged(key string)
}

// SettingsStore is the host's persisted settings storage.
type SettingsStore interface {
	Bool(key string, def bool) bool
	String(key string) (string, bool)
	Observe(key string, o SettingsObserver) Subscription
}

// Sensor describes a proximity sensor.
type Sensor struct {
	Name     string
	MaxRange float32
}

// SensorEvent is one sensor sample.
type SensorEvent struct {
	Sensor   *Sensor
	Distance float32
}

type SensorListener interface {
	OnSensorChanged(ev SensorEvent)
}

// SamplingRate is the requested delay between sensor samples.
type SamplingRate time.Duration

const SensorDelayNormal = SamplingRate(200 * time.Millisecond)

// SensorManager registers listeners on the proximity sensor.
type SensorManager interface {
	DefaultProximitySensor() *Sensor
	RegisterListener(l SensorListener, s *Sensor, rate SamplingRate) error
	UnregisterListener(l SensorListener, s *Sensor)
}

// WakeLock keeps the system awake for a bounded duration. Acquire must not
// block; the lock expires by itself.
type WakeLock interface {
	Acquire(timeout time.Duration)
}

// ControlNode is a hardware control file accepting "1" or "0".
type ControlNode interface {
	Writable() bool
	Write(value string) error
}
