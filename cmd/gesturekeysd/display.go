package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

// displayWatcher polls the panel's bl_power attribute and reports blank and
// unblank transitions. "0" is FB_BLANK_UNBLANK; anything else is off.
type displayWatcher struct {
	Path     string
	Interval time.Duration
	Events   chan<- Event
	Logger   *slog.Logger

	read func(path string) ([]byte, error)
}

func (w displayWatcher) Run(ctx context.Context) error {
	read := w.read
	if read == nil {
		read = os.ReadFile
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	var (
		known  bool
		lastOn bool
		warned bool
	)

	for {
		on, err := readDisplayOn(read, w.Path)
		switch {
		case err != nil:
			if !warned {
				level := slog.LevelWarn
				if errors.Is(err, fs.ErrNotExist) {
					level = slog.LevelInfo
				}
				w.Logger.Log(ctx, level, "display state unreadable", "path", w.Path, "error", err)
				warned = true
			}
		case !known || on != lastOn:
			known, lastOn, warned = true, on, false
			var ev Event = DisplayOff{}
			if on {
				ev = DisplayOn{}
			}
			select {
			case w.Events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readDisplayOn(read func(string) ([]byte, error), path string) (bool, error) {
	b, err := read(path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(b)) == "0", nil
}
