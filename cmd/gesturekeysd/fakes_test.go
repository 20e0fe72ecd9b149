package main

import (
	"io"
	"log/slog"
	"sync"

	"gesturekeys/internal/keyhandler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRouter struct {
	disabled bool
	wake     int
	camera   int
	handled  map[int]bool

	calls []string
	seen  []keyhandler.KeyEvent
}

func (r *fakeRouter) IsDisabled(ev keyhandler.KeyEvent) bool {
	r.calls = append(r.calls, "disabled")
	return r.disabled
}

func (r *fakeRouter) IsWakeEvent(ev keyhandler.KeyEvent) bool {
	r.calls = append(r.calls, "wake")
	return ev.ScanCode == r.wake
}

func (r *fakeRouter) IsCameraLaunchEvent(ev keyhandler.KeyEvent) bool {
	r.calls = append(r.calls, "camera")
	return ev.ScanCode == r.camera
}

func (r *fakeRouter) CanHandle(ev keyhandler.KeyEvent) bool {
	r.calls = append(r.calls, "can")
	_, ok := r.handled[ev.ScanCode]
	return ok
}

func (r *fakeRouter) OnKeyEvent(ev keyhandler.KeyEvent) bool {
	r.calls = append(r.calls, "on")
	r.seen = append(r.seen, ev)
	return r.handled[ev.ScanCode]
}

type runCall struct {
	name string
	argv []string
	env  []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
}

func (r *fakeRunner) Run(name string, argv []string, env ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runCall{name: name, argv: argv, env: env})
}

func (r *fakeRunner) runs() []runCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runCall(nil), r.calls...)
}

type fakeHandlerState struct {
	on, off int
	snap    keyhandler.Snapshot
}

func (h *fakeHandlerState) OnDisplayOn()                  { h.on++ }
func (h *fakeHandlerState) OnDisplayOff()                 { h.off++ }
func (h *fakeHandlerState) Snapshot() keyhandler.Snapshot { return h.snap }

type fakeSettingsWriter struct {
	values map[string]string
	err    error
}

func (s *fakeSettingsWriter) Set(key, value string) error {
	if s.err != nil {
		return s.err
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}

type broadcastRecord struct {
	typ  string
	data any
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []broadcastRecord
}

func (b *fakeBroadcaster) broadcast(typ string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, broadcastRecord{typ: typ, data: data})
}

func (b *fakeBroadcaster) records() []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastRecord(nil), b.sent...)
}
