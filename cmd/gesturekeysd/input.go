package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// inputListener forwards key events from one evdev device to the daemon
// loop, reopening the device when it disappears.
type inputListener struct {
	Device string
	Events chan<- Event
	Retry  time.Duration
	Logger *slog.Logger
}

func (lis inputListener) Run(ctx context.Context) error {
	logger := lis.Logger.With("device", lis.Device)

	for {
		retry, err := lis.listen(ctx, logger)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lis.Retry <= 0 || !retry {
			return err
		}

		logger.Info("waiting before retrying", "duration", lis.Retry, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lis.Retry):
		}
	}
}

func (lis inputListener) listen(ctx context.Context, logger *slog.Logger) (retry bool, err error) {
	d, err := evdev.Open(lis.Device)
	if err != nil {
		retry := isTemporary(err) || errors.Is(err, fs.ErrNotExist)
		if retry {
			return true, err
		}
		logger.Warn("ignoring device", "reason", "failed to open", "error", err)
		return false, nil
	}
	defer d.Close()

	stop := context.AfterFunc(ctx, func() { d.Close() })
	defer stop()

	name, _ := d.Name()
	logger.Info("initialized device", "name", name)

	for {
		ev, err := d.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if errors.Is(err, fs.ErrClosed) {
				logger.Warn("device closed while reading")
				return false, nil
			}
			if isTemporary(err) || errors.Is(err, unix.ENODEV) {
				logger.Warn("device disappeared while reading", "error", err)
				return true, err
			}
			logger.Warn("read event", "error", err)
			return true, err
		}

		ki, ok := keyInput(ev, lis.Device)
		if !ok {
			continue
		}
		select {
		case lis.Events <- ki:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// keyInput converts an EV_KEY event. Other event types are dropped.
func keyInput(ev *evdev.InputEvent, source string) (KeyInput, bool) {
	if ev == nil || ev.Type != evdev.EV_KEY {
		return KeyInput{}, false
	}
	return KeyInput{ScanCode: int(ev.Code), Value: ev.Value, Source: source}, true
}

func isTemporary(err error) bool {
	var errno unix.Errno
	return errors.As(err, &errno) && errno.Temporary()
}
