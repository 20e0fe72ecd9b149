package keyhandler

import (
	"log/slog"
	"time"
)

// MediaDispatcher synthesizes media button presses for the active session.
type MediaDispatcher struct {
	session MediaSession
	now     func() time.Time
	logger  *slog.Logger
}

func newMediaDispatcher(session MediaSession, logger *slog.Logger) *MediaDispatcher {
	return &MediaDispatcher{session: session, now: time.Now, logger: logger}
}

// IsMusicActive reports whether a media session is playing.
func (d *MediaDispatcher) IsMusicActive() bool {
	return d.session != nil && d.session.IsMusicActive()
}

// Dispatch sends a down event followed by the matching up event. Without a
// session it does nothing.
func (d *MediaDispatcher) Dispatch(keycode int) {
	if d.session == nil {
		return
	}
	now := d.now()
	ev := MediaKeyEvent{
		DownTime:  now,
		EventTime: now,
		Action:    ActionDown,
		KeyCode:   keycode,
	}
	if err := d.session.SendMediaButtonEvent(ev, true); err != nil {
		d.logger.Debug("media button down failed", "keycode", keycode, "error", err)
	}
	ev.Action = ActionUp
	if err := d.session.SendMediaButtonEvent(ev, true); err != nil {
		d.logger.Debug("media button up failed", "keycode", keycode, "error", err)
	}
}
