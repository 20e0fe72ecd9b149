// Package proximity exposes an evdev proximity sensor (ABS_DISTANCE) as a
// keyhandler.SensorManager.
package proximity

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/holoplot/go-evdev"

	"gesturekeys/internal/keyhandler"
)

// Device is the part of an evdev device the manager reads from.
type Device interface {
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// Opener opens the sensor device and returns its current distance.
type Opener func(path string) (dev Device, current int32, err error)

// Manager samples one proximity sensor for at most one listener at a time.
type Manager struct {
	path   string
	sensor *keyhandler.Sensor
	open   Opener
	logger *slog.Logger

	mu       sync.Mutex
	listener keyhandler.SensorListener
	dev      Device
	done     chan struct{}
}

// Open probes the device at path for its name and maximum distance.
func Open(path string, logger *slog.Logger) (*Manager, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proximity device: %w", err)
	}
	defer dev.Close()

	name, err := dev.Name()
	if err != nil {
		name = path
	}
	infos, err := dev.AbsInfos()
	if err != nil {
		return nil, fmt.Errorf("read abs info %s: %w", path, err)
	}
	info, ok := infos[evdev.ABS_DISTANCE]
	if !ok {
		return nil, fmt.Errorf("%s: device has no ABS_DISTANCE axis", path)
	}

	sensor := &keyhandler.Sensor{Name: name, MaxRange: float32(info.Maximum)}
	return NewManager(path, sensor, openEvdev, logger), nil
}

// NewManager builds a manager around an explicit sensor description.
func NewManager(path string, sensor *keyhandler.Sensor, open Opener, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		path:   path,
		sensor: sensor,
		open:   open,
		logger: logger.With("component", "proximity", "device", path),
	}
}

func openEvdev(path string) (Device, int32, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, 0, err
	}
	infos, err := dev.AbsInfos()
	if err != nil {
		dev.Close()
		return nil, 0, err
	}
	return dev, infos[evdev.ABS_DISTANCE].Value, nil
}

func (m *Manager) DefaultProximitySensor() *keyhandler.Sensor {
	return m.sensor
}

// RegisterListener opens the device and delivers samples to l from a
// reader goroutine. The current distance is delivered first. The kernel
// driver sets the sampling rate, so rate is informational.
func (m *Manager) RegisterListener(l keyhandler.SensorListener, s *keyhandler.Sensor, rate keyhandler.SamplingRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return errors.New("proximity listener already registered")
	}

	dev, current, err := m.open(m.path)
	if err != nil {
		return fmt.Errorf("open proximity device: %w", err)
	}
	m.listener = l
	m.dev = dev
	m.done = make(chan struct{})
	m.logger.Debug("proximity sampling started", "rate", rate)

	go m.read(dev, l, s, current, m.done)
	return nil
}

// UnregisterListener stops the reader and closes the device. It returns
// after the last sample was delivered.
func (m *Manager) UnregisterListener(l keyhandler.SensorListener, _ *keyhandler.Sensor) {
	m.mu.Lock()
	if m.listener == nil || m.listener != l {
		m.mu.Unlock()
		return
	}
	dev, done := m.dev, m.done
	m.listener, m.dev, m.done = nil, nil, nil
	m.mu.Unlock()

	dev.Close()
	<-done
	m.logger.Debug("proximity sampling stopped")
}

func (m *Manager) read(dev Device, l keyhandler.SensorListener, s *keyhandler.Sensor, current int32, done chan<- struct{}) {
	defer close(done)

	l.OnSensorChanged(keyhandler.SensorEvent{Sensor: s, Distance: float32(current)})
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if !errors.Is(err, fs.ErrClosed) {
				m.logger.Debug("proximity read stopped", "error", err)
			}
			return
		}
		if d, ok := distanceSample(ev); ok {
			l.OnSensorChanged(keyhandler.SensorEvent{Sensor: s, Distance: d})
		}
	}
}

// distanceSample extracts a distance from an ABS_DISTANCE event.
func distanceSample(ev *evdev.InputEvent) (float32, bool) {
	if ev == nil || ev.Type != evdev.EV_ABS || ev.Code != evdev.ABS_DISTANCE {
		return 0, false
	}
	return float32(ev.Value), true
}
