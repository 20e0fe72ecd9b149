// Package leds implements keyhandler.CameraService on top of sysfs flash
// LEDs (/sys/class/leds/<name>).
package leds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gesturekeys/internal/keyhandler"
)

var ErrUnknownCamera = errors.New("unknown camera")

// Camera describes one camera module and its flash LED directory.
type Camera struct {
	ID     string
	LED    string // sysfs LED directory, empty if the camera has no flash
	Facing keyhandler.LensFacing
}

// ParseFacing maps "front", "back" and "external" to a LensFacing.
func ParseFacing(s string) (keyhandler.LensFacing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front":
		return keyhandler.LensFacingFront, nil
	case "back", "rear":
		return keyhandler.LensFacingBack, nil
	case "external":
		return keyhandler.LensFacingExternal, nil
	case "", "unknown":
		return keyhandler.LensFacingUnknown, nil
	}
	return keyhandler.LensFacingUnknown, fmt.Errorf("invalid lens facing %q", s)
}

type torchState int

const (
	torchUnknown torchState = iota
	torchOff
	torchOn
	torchUnavailable
)

// Service drives flash LEDs as torches.
type Service struct {
	cameras []Camera
	logger  *slog.Logger

	mu        sync.Mutex
	callbacks []keyhandler.TorchCallback
	states    map[string]torchState
}

func New(cameras []Camera, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cameras: cameras,
		logger:  logger.With("component", "leds"),
		states:  make(map[string]torchState, len(cameras)),
	}
}

func (s *Service) CameraIDs() ([]string, error) {
	ids := make([]string, 0, len(s.cameras))
	for _, c := range s.cameras {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *Service) camera(id string) (Camera, error) {
	for _, c := range s.cameras {
		if c.ID == id {
			return c, nil
		}
	}
	return Camera{}, fmt.Errorf("%w: %q", ErrUnknownCamera, id)
}

// Characteristics reports a flash only when the LED directory exists.
func (s *Service) Characteristics(id string) (keyhandler.CameraCharacteristics, error) {
	c, err := s.camera(id)
	if err != nil {
		return keyhandler.CameraCharacteristics{}, err
	}
	flash := false
	if c.LED != "" {
		if _, err := os.Stat(filepath.Join(c.LED, "brightness")); err == nil {
			flash = true
		}
	}
	return keyhandler.CameraCharacteristics{FlashAvailable: flash, LensFacing: c.Facing}, nil
}

// SetTorchMode lights the LED at max_brightness, or turns it off.
func (s *Service) SetTorchMode(id string, enabled bool) error {
	c, err := s.camera(id)
	if err != nil {
		return err
	}
	if c.LED == "" {
		return fmt.Errorf("camera %q has no flash", id)
	}

	value := "0"
	if enabled {
		maxBrightness, err := readInt(filepath.Join(c.LED, "max_brightness"))
		if err != nil || maxBrightness <= 0 {
			maxBrightness = 1
		}
		value = strconv.Itoa(maxBrightness)
	}
	if err := writeValue(filepath.Join(c.LED, "brightness"), value); err != nil {
		return fmt.Errorf("set torch %q: %w", id, err)
	}

	s.update(id, stateFor(enabled))
	return nil
}

func (s *Service) RegisterTorchCallback(cb keyhandler.TorchCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Run polls LED brightness so torch changes made by other clients reach
// the callbacks, until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Poll()
		}
	}
}

// Poll reads every LED once.
func (s *Service) Poll() {
	for _, c := range s.cameras {
		if c.LED == "" {
			continue
		}
		b, err := readInt(filepath.Join(c.LED, "brightness"))
		if err != nil {
			s.update(c.ID, torchUnavailable)
			continue
		}
		s.update(c.ID, stateFor(b > 0))
	}
}

// update records the state and fires callbacks on transitions.
func (s *Service) update(id string, st torchState) {
	s.mu.Lock()
	prev := s.states[id]
	s.states[id] = st
	cbs := append([]keyhandler.TorchCallback(nil), s.callbacks...)
	s.mu.Unlock()

	if prev == st {
		return
	}
	s.logger.Debug("torch state changed", "camera", id, "on", st == torchOn, "available", st != torchUnavailable)
	for _, cb := range cbs {
		if st == torchUnavailable {
			cb.OnTorchModeUnavailable(id)
		} else {
			cb.OnTorchModeChanged(id, st == torchOn)
		}
	}
}

func stateFor(on bool) torchState {
	if on {
		return torchOn
	}
	return torchOff
}

// writeValue writes to an existing attribute file; sysfs attributes are
// never created.
func writeValue(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
