// Package logging provides the daemon's slog handler. Records go to a
// terminal styled with lipgloss, or to the systemd journal with attributes
// as journal fields.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/coreos/go-systemd/v22/journal"
)

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

var (
	styleTime  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#222222", Dark: "#AAAAAA"})
	styleKey   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#222222", Dark: "#AAAAAA"})
	styleValue = lipgloss.NewStyle()

	styleError = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AA0000", Dark: "#EE0000"})
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AAAA00", Dark: "#EEEE00"})
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#3333AA", Dark: "#5555EE"})
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00AA00", Dark: "#00EE00"})
)

func styleLevel(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return styleError
	case level >= slog.LevelWarn:
		return styleWarn
	case level >= slog.LevelInfo:
		return styleInfo
	default:
		return styleDebug
	}
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// Handler is a slog.Handler. The zero value writes info and above to
// stderr.
type Handler struct {
	Out        io.Writer
	UseJournal bool
	Level      slog.Leveler

	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

func NewHandler(out io.Writer, useJournal bool, level slog.Leveler) *Handler {
	return &Handler{Out: out, UseJournal: useJournal, Level: level, mu: new(sync.Mutex)}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.Level != nil {
		min = h.Level.Level()
	}
	return level >= min
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := slices.Grow(slices.Clip(h.attrs), r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, a)
		return true
	})

	if h.UseJournal {
		return h.handleJournal(r, attrs)
	}

	buf := bufPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufPool.Put(buf)
	}()

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(
		buf,
		"%v %v %v\n",
		styleTime.Render(ts.Format(time.StampMilli)),
		styleLevel(r.Level).Render(r.Level.String()),
		r.Message,
	)
	for _, attr := range attrs {
		fmt.Fprintf(
			buf,
			"\t%v=%v\n",
			styleKey.Render(quoteIfNecessary(attr.Key)),
			styleValue.Render(quoteIfNecessary(attr.Value.String())),
		)
	}

	out := h.Out
	if out == nil {
		out = os.Stderr
	}
	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	_, err := out.Write(buf.Bytes())
	return err
}

func (h *Handler) handleJournal(r slog.Record, attrs []slog.Attr) error {
	vars := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		if key := journalKey(attr.Key); key != "" {
			vars[key] = attr.Value.String()
		}
	}
	return journal.Send(r.Message, journalPriority(r.Level), vars)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		c.attrs = appendAttr(c.attrs, h.prefix, a)
	}
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// appendAttr resolves a and flattens groups into dotted keys.
func appendAttr(attrs []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return attrs
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return attrs
		}
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range group {
			attrs = appendAttr(attrs, p, ga)
		}
		return attrs
	}
	a.Key = prefix + a.Key
	return append(attrs, a)
}

func quoteIfNecessary(str string) string {
	if str == "" {
		return `""`
	}
	for _, c := range str {
		if unicode.IsSpace(c) || c == '"' || c == '=' {
			return strconv.Quote(str)
		}
	}
	return str
}

// journalKey converts an attribute key into a valid journal field name:
// uppercase ASCII letters, digits and underscores, not starting with an
// underscore or digit.
func journalKey(key string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(key) {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return strings.TrimLeft(b.String(), "_0123456789")
}
