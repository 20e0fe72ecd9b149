// Package keyhandler turns device gesture and alert slider scancodes into
// system actions: torch toggle, media transport, zen/ringer changes and wake
// gating. The host owns input delivery and calls into KeyHandler; all system
// services are reached through the interfaces in services.go.
package keyhandler

import (
	"context"
	"log/slog"
	"time"
)

// GestureWakeLockDuration bounds the wake lock taken before each gesture
// action.
const GestureWakeLockDuration = 3000 * time.Millisecond

// Options carries the services a KeyHandler uses. Any of them may be nil.
type Options struct {
	Camera        CameraService
	Media         MediaSession
	Zen           ZenController
	Ringer        RingerController
	Settings      SettingsStore
	Sensors       SensorManager
	WakeLock      WakeLock
	KeysNode      ControlNode
	ProximityNode ControlNode
	Logger        *slog.Logger
}

// KeyHandler is the gesture dispatcher.
type KeyHandler struct {
	state    *State
	settings *SettingsWatcher
	prox     *ProximityGate
	torch    *TorchController
	media    *MediaDispatcher
	slider   *SliderMapper
	wakeLock WakeLock
	mailbox  *mailbox
	logger   *slog.Logger
}

// New builds a handler, applies the current settings and subscribes to
// settings and torch changes.
func New(opts Options) *KeyHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "keyhandler")

	state := &State{}
	h := &KeyHandler{
		state:    state,
		settings: newSettingsWatcher(opts.Settings, state, opts.KeysNode, logger),
		prox:     newProximityGate(opts.Sensors, state, opts.ProximityNode, logger),
		torch:    newTorchController(opts.Camera, state, logger),
		media:    newMediaDispatcher(opts.Media, logger),
		slider:   newSliderMapper(state, opts.Zen, opts.Ringer),
		wakeLock: opts.WakeLock,
		mailbox:  newMailbox(),
		logger:   logger,
	}

	h.settings.Observe()
	if opts.Camera != nil {
		opts.Camera.RegisterTorchCallback(h.torch)
	}
	return h
}

// CanHandle reports whether the host should forward ev to OnKeyEvent.
func (h *KeyHandler) CanHandle(ev KeyEvent) bool {
	return isSupported(ev.ScanCode)
}

// OnKeyEvent consumes release events for handled scancodes. Slider
// positions are applied before returning; gestures are queued for Run,
// replacing any gesture still pending.
func (h *KeyHandler) OnKeyEvent(ev KeyEvent) bool {
	if ev.Action != ActionUp || !isHandled(ev.ScanCode) {
		return false
	}

	if pos, ok := sliderPosition(ev.ScanCode); ok {
		if err := h.slider.ApplySliderAction(pos); err != nil {
			h.logger.Warn("slider action failed", "position", pos, "error", err)
		}
		return true
	}

	h.mailbox.Post(ev)
	return true
}

// IsDisabled reports whether ev must be dropped because the device is
// covered.
func (h *KeyHandler) IsDisabled(ev KeyEvent) bool {
	return h.state.ProximityCheckEnabled() &&
		isProximityChecked(ev.ScanCode) &&
		h.state.ProximityNear()
}

func (h *KeyHandler) IsCameraLaunchEvent(ev KeyEvent) bool {
	return ev.Action == ActionUp && ev.ScanCode == ScanGestureCircle
}

func (h *KeyHandler) IsWakeEvent(ev KeyEvent) bool {
	return ev.Action == ActionUp && ev.ScanCode == ScanDoubleTap
}

// Run processes queued gestures until ctx is cancelled.
func (h *KeyHandler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.mailbox.Ready():
			if ev, ok := h.mailbox.Take(); ok {
				h.handleGesture(ev)
			}
		}
	}
}

func (h *KeyHandler) handleGesture(ev KeyEvent) {
	h.logger.Debug("gesture", "scancode", ev.ScanCode)

	switch ev.ScanCode {
	case ScanGestureV:
		id, ok := h.torch.RearCameraID()
		if !ok {
			return
		}
		h.acquireWakeLock()
		h.torch.Toggle(id)
	case ScanGestureII:
		h.acquireWakeLock()
		h.media.Dispatch(KeycodeMediaPlayPause)
	case ScanGestureLeftV:
		if !h.media.IsMusicActive() {
			return
		}
		h.acquireWakeLock()
		h.media.Dispatch(KeycodeMediaPrevious)
	case ScanGestureRightV:
		if !h.media.IsMusicActive() {
			return
		}
		h.acquireWakeLock()
		h.media.Dispatch(KeycodeMediaNext)
	}
}

func (h *KeyHandler) acquireWakeLock() {
	if h.wakeLock != nil {
		h.wakeLock.Acquire(GestureWakeLockDuration)
	}
}

func (h *KeyHandler) OnDisplayOn()  { h.prox.OnDisplayOn() }
func (h *KeyHandler) OnDisplayOff() { h.prox.OnDisplayOff() }

// Snapshot returns the current handler state.
func (h *KeyHandler) Snapshot() Snapshot {
	return h.state.Snapshot()
}

// Close drops settings subscriptions.
func (h *KeyHandler) Close() {
	h.settings.Close()
}
