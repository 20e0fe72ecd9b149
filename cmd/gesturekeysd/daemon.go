package main

import (
	"context"
	"log/slog"
	"time"

	"gesturekeys/internal/keyhandler"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The loop goroutine is the host's key delivery thread: every key event
// reaches the key handler from here, so slider actions run on this goroutine
// while gesture actions run on the handler's worker.
//
// The loop also owns display state, applies setting changes and publishes
// state changes to the state WebSocket.
//
// ============================================================================

type handlerState interface {
	OnDisplayOn()
	OnDisplayOff()
	Snapshot() keyhandler.Snapshot
}

type settingsWriter interface {
	Set(key, value string) error
}

type daemon struct {
	host      *host
	handler   handlerState
	settings  settingsWriter
	policy    *policy
	broadcast func(typ string, data any)
	logger    *slog.Logger

	displayOn bool
	last      keyhandler.Snapshot
}

// run processes events until ctx is canceled or events is closed. A ticker
// picks up handler state changed by the worker or the proximity sensor.
func (d *daemon) run(ctx context.Context, events <-chan Event) {
	ticker := time.NewTicker(snapshotInterval * time.Millisecond)
	defer ticker.Stop()

	d.last = d.handler.Snapshot()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				d.logger.Info("daemon stopping (events channel closed)")
				return
			}
			d.apply(ev)
			d.publishIfChanged()

		case <-ticker.C:
			d.publishIfChanged()
		}
	}
}

func (d *daemon) apply(ev Event) {
	switch e := ev.(type) {
	case KeyInput:
		res := d.host.route(e)
		d.logger.Debug("key", "scancode", e.ScanCode, "value", e.Value, "source", e.Source, "result", res)

	case DisplayOn:
		d.setDisplay(true)

	case DisplayOff:
		d.setDisplay(false)

	case SetSetting:
		if d.settings == nil {
			d.logger.Warn("settings store unavailable", "key", e.Key)
			return
		}
		if err := d.settings.Set(e.Key, e.Value); err != nil {
			d.logger.Warn("set setting failed", "key", e.Key, "error", err)
			return
		}
		d.logger.Info("setting changed", "key", e.Key, "value", e.Value)

	case RequestStateSnapshot:
		select {
		case e.Reply <- d.snapshot():
		default:
			d.logger.Warn("snapshot reply dropped")
		}

	default:
		d.logger.Warn("unknown event", "type", ev)
	}
}

func (d *daemon) setDisplay(on bool) {
	if on {
		d.handler.OnDisplayOn()
	} else {
		d.handler.OnDisplayOff()
	}
	if d.displayOn == on {
		return
	}
	d.displayOn = on
	d.logger.Debug("display", "on", on)
	d.emit("display_changed", wsDisplayData{On: on})
}

func (d *daemon) snapshot() StateSnapshot {
	snap := StateSnapshot{
		Handler:   d.handler.Snapshot(),
		DisplayOn: d.displayOn,
	}
	if d.policy != nil {
		zen, ringer := d.policy.modes()
		snap.ZenMode = zen.String()
		snap.RingerMode = ringer.String()
	}
	return snap
}

func (d *daemon) publishIfChanged() {
	cur := d.handler.Snapshot()
	if cur == d.last {
		return
	}
	d.last = cur
	d.emit("handler_state", cur)
}

func (d *daemon) emit(typ string, data any) {
	if d.broadcast != nil {
		d.broadcast(typ, data)
	}
}
