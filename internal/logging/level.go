package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// LogLevel represents the available logging levels
type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

// ParseLevel converts a string to a LogLevel
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return "", fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", level)
	}
}

func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Output selects where records go.
type Output string

const (
	OutputAuto     Output = "auto"
	OutputTerminal Output = "terminal"
	OutputJournal  Output = "journal"
)

func ParseOutput(s string) (Output, error) {
	switch o := Output(strings.ToLower(s)); o {
	case OutputAuto, OutputTerminal, OutputJournal:
		return o, nil
	case "":
		return OutputAuto, nil
	}
	return "", fmt.Errorf("invalid log output: %s (must be auto, terminal, or journal)", s)
}

// New creates a logger. Auto output picks the journal when journald is
// reachable.
func New(level LogLevel, output Output, out io.Writer) *slog.Logger {
	useJournal := output == OutputJournal || (output == OutputAuto && journal.Enabled())
	return slog.New(NewHandler(out, useJournal, level.Slog()))
}
