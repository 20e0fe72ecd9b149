package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	watchMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE | unix.IN_DELETE
	pollMs    = 250
)

// Watch reloads the store whenever the settings file is replaced or
// written, until ctx is cancelled. The parent directory is watched so
// rename-based editors and Set are both seen.
func (s *Store) Watch(ctx context.Context) error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("inotify init: %w", err)
	}
	defer unix.Close(fd)

	dir, name := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	if _, err := unix.InotifyAddWatch(fd, dir, watchMask); err != nil {
		return fmt.Errorf("inotify watch %s: %w", dir, err)
	}

	buf := make([]byte, 4096)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.Poll(fds, pollMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll inotify: %w", err)
		}
		if n == 0 {
			continue
		}

		n, err = unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("read inotify: %w", err)
		}
		if !touches(buf[:n], name) {
			continue
		}
		if err := s.Reload(); err != nil {
			// keep the last good values; the next write may fix the file
			s.logger.Warn("settings reload failed", "error", err)
		}
	}
}

// touches reports whether any inotify event in buf names file.
func touches(buf []byte, file string) bool {
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
		start := off + unix.SizeofInotifyEvent
		end := start + int(ev.Len)
		if end > len(buf) {
			return false
		}
		name := string(bytes.TrimRight(buf[start:end], "\x00"))
		if name == file {
			return true
		}
		off = end
	}
	return false
}
