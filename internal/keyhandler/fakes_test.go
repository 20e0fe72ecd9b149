package keyhandler

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type torchCall struct {
	id      string
	enabled bool
}

type fakeCamera struct {
	mu       sync.Mutex
	ids      []string
	chars    map[string]CameraCharacteristics
	idsErr   error
	torchErr error
	calls    []torchCall
	enumCnt  int
	callback TorchCallback
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{
		ids: []string{"0", "1"},
		chars: map[string]CameraCharacteristics{
			"0": {FlashAvailable: false, LensFacing: LensFacingFront},
			"1": {FlashAvailable: true, LensFacing: LensFacingBack},
		},
	}
}

func (c *fakeCamera) CameraIDs() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enumCnt++
	return c.ids, c.idsErr
}

func (c *fakeCamera) Characteristics(id string) (CameraCharacteristics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chars[id]
	if !ok {
		return CameraCharacteristics{}, errors.New("no such camera")
	}
	return ch, nil
}

func (c *fakeCamera) SetTorchMode(id string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, torchCall{id: id, enabled: enabled})
	return c.torchErr
}

func (c *fakeCamera) RegisterTorchCallback(cb TorchCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
}

func (c *fakeCamera) torchCalls() []torchCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]torchCall(nil), c.calls...)
}

type mediaCall struct {
	ev           MediaKeyEvent
	needWakeLock bool
}

type fakeMedia struct {
	mu     sync.Mutex
	active bool
	err    error
	calls  []mediaCall
}

func (m *fakeMedia) IsMusicActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *fakeMedia) setActive(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = v
}

func (m *fakeMedia) SendMediaButtonEvent(ev MediaKeyEvent, needWakeLock bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mediaCall{ev: ev, needWakeLock: needWakeLock})
	return m.err
}

func (m *fakeMedia) events() []mediaCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mediaCall(nil), m.calls...)
}

type fakeZen struct {
	modes []ZenMode
	err   error
}

func (z *fakeZen) SetZenMode(mode ZenMode) error {
	z.modes = append(z.modes, mode)
	return z.err
}

type fakeRinger struct {
	modes []RingerMode
}

func (r *fakeRinger) SetRingerMode(mode RingerMode) error {
	r.modes = append(r.modes, mode)
	return nil
}

type fakeSubscription struct {
	closed *int
}

func (s fakeSubscription) Close() { *s.closed++ }

type fakeSettings struct {
	mu        sync.Mutex
	values    map[string]string
	observers map[string][]SettingsObserver
	closed    int
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		values:    map[string]string{},
		observers: map[string][]SettingsObserver{},
	}
}

func (s *fakeSettings) Bool(key string, def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return def
	}
	return v == "1" || v == "true"
}

func (s *fakeSettings) String(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *fakeSettings) Observe(key string, o SettingsObserver) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers[key] = append(s.observers[key], o)
	return fakeSubscription{closed: &s.closed}
}

// set stores the value and notifies observers like a host store would.
func (s *fakeSettings) set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	obs := append([]SettingsObserver(nil), s.observers[key]...)
	s.mu.Unlock()
	for _, o := range obs {
		o.OnSettingChanged(key)
	}
}

type fakeSensors struct {
	sensor       *Sensor
	registered   int
	unregistered int
	rates        []SamplingRate
	listener     SensorListener
}

func (s *fakeSensors) DefaultProximitySensor() *Sensor { return s.sensor }

func (s *fakeSensors) RegisterListener(l SensorListener, _ *Sensor, rate SamplingRate) error {
	s.registered++
	s.rates = append(s.rates, rate)
	s.listener = l
	return nil
}

func (s *fakeSensors) UnregisterListener(SensorListener, *Sensor) {
	s.unregistered++
	s.listener = nil
}

type fakeWakeLock struct {
	mu       sync.Mutex
	acquired []time.Duration
}

func (w *fakeWakeLock) Acquire(timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.acquired = append(w.acquired, timeout)
}

func (w *fakeWakeLock) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.acquired)
}

type fakeNode struct {
	writable bool
	writes   []string
}

func (n *fakeNode) Writable() bool { return n.writable }

func (n *fakeNode) Write(value string) error {
	n.writes = append(n.writes, value)
	return nil
}
