package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturekeys/internal/keyhandler"
)

type daemonRig struct {
	d        *daemon
	handler  *fakeHandlerState
	router   *fakeRouter
	settings *fakeSettingsWriter
	bcast    *fakeBroadcaster
}

func newDaemonRig() *daemonRig {
	r := &daemonRig{
		handler:  &fakeHandlerState{},
		router:   &fakeRouter{handled: map[int]bool{252: true}},
		settings: &fakeSettingsWriter{},
		bcast:    &fakeBroadcaster{},
	}
	r.d = &daemon{
		host:      newTestHost(r.router, &fakeRunner{}),
		handler:   r.handler,
		settings:  r.settings,
		policy:    newPolicy(nil, nil, nil, discardLogger()),
		broadcast: r.bcast.broadcast,
		logger:    discardLogger(),
		displayOn: true,
	}
	return r
}

func TestDaemonRoutesKeys(t *testing.T) {
	r := newDaemonRig()

	r.d.apply(KeyInput{ScanCode: 252, Value: evValueRelease})

	require.Len(t, r.router.seen, 1)
	assert.Equal(t, keyhandler.KeyEvent{ScanCode: 252, Action: keyhandler.ActionUp}, r.router.seen[0])
}

func TestDaemonDisplayTransitions(t *testing.T) {
	r := newDaemonRig()

	r.d.apply(DisplayOff{})
	r.d.apply(DisplayOff{})
	r.d.apply(DisplayOn{})

	// The handler sees every notification; it deduplicates itself.
	assert.Equal(t, 2, r.handler.off)
	assert.Equal(t, 1, r.handler.on)

	recs := r.bcast.records()
	require.Len(t, recs, 2)
	assert.Equal(t, broadcastRecord{typ: "display_changed", data: wsDisplayData{On: false}}, recs[0])
	assert.Equal(t, broadcastRecord{typ: "display_changed", data: wsDisplayData{On: true}}, recs[1])
}

func TestDaemonSetSetting(t *testing.T) {
	r := newDaemonRig()

	r.d.apply(SetSetting{Key: keyhandler.SettingProximityOnWake, Value: "false"})
	assert.Equal(t, "false", r.settings.values[keyhandler.SettingProximityOnWake])

	r.settings.err = errors.New("read-only")
	r.d.apply(SetSetting{Key: keyhandler.SettingHardwareKeysDisable, Value: "true"})
	_, ok := r.settings.values[keyhandler.SettingHardwareKeysDisable]
	assert.False(t, ok)
}

func TestDaemonSetSettingWithoutStore(t *testing.T) {
	r := newDaemonRig()
	r.d.settings = nil

	assert.NotPanics(t, func() {
		r.d.apply(SetSetting{Key: "x", Value: "1"})
	})
}

func TestDaemonSnapshot(t *testing.T) {
	r := newDaemonRig()
	r.handler.snap = keyhandler.Snapshot{TorchEnabled: true, SliderMapping: "5,3,0"}
	require.NoError(t, r.d.policy.SetZenMode(keyhandler.ZenModeAlarms))
	r.d.apply(DisplayOff{})

	reply := make(chan StateSnapshot, 1)
	r.d.apply(RequestStateSnapshot{Reply: reply})

	got := <-reply
	assert.Equal(t, StateSnapshot{
		Handler:    r.handler.snap,
		ZenMode:    "alarms",
		RingerMode: "normal",
		DisplayOn:  false,
	}, got)
}

func TestDaemonPublishesHandlerChanges(t *testing.T) {
	r := newDaemonRig()
	r.d.last = r.handler.Snapshot()

	r.d.publishIfChanged()
	assert.Empty(t, r.bcast.records())

	r.handler.snap.ProximityNear = true
	r.d.publishIfChanged()
	r.d.publishIfChanged()

	recs := r.bcast.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "handler_state", recs[0].typ)
	assert.Equal(t, r.handler.snap, recs[0].data)
}

func TestDaemonRunStopsOnCancel(t *testing.T) {
	r := newDaemonRig()
	events := make(chan Event, 4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.d.run(ctx, events)
	}()

	events <- KeyInput{ScanCode: 252, Value: evValueRelease}

	reply := make(chan StateSnapshot, 1)
	events <- RequestStateSnapshot{Reply: reply}
	select {
	case <-reply:
	case <-time.After(time.Second):
		t.Fatal("no snapshot reply")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.Len(t, r.router.seen, 1)
}

func TestDaemonRunStopsOnClosedEvents(t *testing.T) {
	r := newDaemonRig()
	events := make(chan Event)
	close(events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.d.run(context.Background(), events)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop")
	}
}
