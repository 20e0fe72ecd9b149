package main

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"gesturekeys/internal/keyhandler"
)

// ============================================================================
// Host key routing
// ============================================================================
// The host decides what happens to each raw key event before and around the
// key handler: proximity veto first, then the wake and camera-launch fast
// paths, then the handler itself.
// ============================================================================

// keyRouter is the host-facing surface of keyhandler.KeyHandler.
type keyRouter interface {
	IsDisabled(ev keyhandler.KeyEvent) bool
	IsWakeEvent(ev keyhandler.KeyEvent) bool
	IsCameraLaunchEvent(ev keyhandler.KeyEvent) bool
	CanHandle(ev keyhandler.KeyEvent) bool
	OnKeyEvent(ev keyhandler.KeyEvent) bool
}

type routeResult int

const (
	routeIgnored routeResult = iota // repeat or unknown value
	routeVetoed                     // suppressed by proximity
	routeWake
	routeCameraLaunch
	routeConsumed
	routeUnhandled
)

func (r routeResult) String() string {
	switch r {
	case routeIgnored:
		return "ignored"
	case routeVetoed:
		return "vetoed"
	case routeWake:
		return "wake"
	case routeCameraLaunch:
		return "camera_launch"
	case routeConsumed:
		return "consumed"
	case routeUnhandled:
		return "unhandled"
	default:
		return "unknown"
	}
}

// commandRunner starts a host hook command.
type commandRunner interface {
	Run(name string, argv []string, env ...string)
}

type host struct {
	router keyRouter
	runner commandRunner

	wakeCommand   []string
	cameraCommand []string

	logger *slog.Logger
}

// toKeyEvent maps an evdev value to a key action. Repeats are dropped.
func toKeyEvent(in KeyInput) (keyhandler.KeyEvent, bool) {
	switch in.Value {
	case evValuePress:
		return keyhandler.KeyEvent{ScanCode: in.ScanCode, Action: keyhandler.ActionDown}, true
	case evValueRelease:
		return keyhandler.KeyEvent{ScanCode: in.ScanCode, Action: keyhandler.ActionUp}, true
	default:
		return keyhandler.KeyEvent{}, false
	}
}

// route delivers one key event. It runs on the daemon loop goroutine.
func (h *host) route(in KeyInput) routeResult {
	ev, ok := toKeyEvent(in)
	if !ok {
		return routeIgnored
	}

	if h.router.IsDisabled(ev) {
		h.logger.Debug("key vetoed by proximity", "scancode", ev.ScanCode)
		return routeVetoed
	}
	if h.router.IsWakeEvent(ev) {
		h.runHook("wake", h.wakeCommand, ev)
		return routeWake
	}
	if h.router.IsCameraLaunchEvent(ev) {
		h.runHook("camera", h.cameraCommand, ev)
		return routeCameraLaunch
	}
	if h.router.CanHandle(ev) && h.router.OnKeyEvent(ev) {
		return routeConsumed
	}
	return routeUnhandled
}

func (h *host) runHook(name string, argv []string, ev keyhandler.KeyEvent) {
	if len(argv) == 0 || h.runner == nil {
		h.logger.Debug("fast path without command", "hook", name, "scancode", ev.ScanCode)
		return
	}
	h.runner.Run(name, argv)
}

// execRunner runs hook commands in the background with a timeout.
type execRunner struct {
	ctx     context.Context
	timeout time.Duration
	logger  *slog.Logger
}

func (r execRunner) Run(name string, argv []string, env ...string) {
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Env = append(os.Environ(), env...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			r.logger.Warn("hook command failed", "hook", name, "command", argv[0], "error", err, "output", string(out))
			return
		}
		r.logger.Debug("hook command finished", "hook", name, "command", argv[0])
	}()
}
