// Package logging sets up the process-wide slog logger with a colored console handler.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const componentKey = "component"

// TimeFormat is the timestamp layout of every log line
const TimeFormat = "15:04:05"

var (
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgHiBlack)

	componentColors = []*color.Color{
		color.New(color.FgCyan),
		color.New(color.FgGreen),
		color.New(color.FgMagenta),
		color.New(color.FgBlue),
		color.New(color.FgHiCyan),
		color.New(color.FgHiGreen),
	}
)

func init() {
	Init(os.Stdout, slog.LevelInfo, false)
}

// Init installs the console handler as the slog default
func Init(w io.Writer, level slog.Leveler, noColor bool) *slog.Logger {
	color.NoColor = noColor
	logger := slog.New(NewHandler(w, &HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger tagged with a subsystem name
func Component(name string) *slog.Logger {
	return slog.Default().With(slog.String(componentKey, name))
}

// HandlerOptions configures Handler
type HandlerOptions struct {
	Level slog.Leveler
}

// Handler writes one human readable line per record:
// 15:04:05 [WARN] [COMPONENT] message key=value
type Handler struct {
	w         io.Writer
	opts      HandlerOptions
	mu        *sync.Mutex
	component string
	attrs     []slog.Attr
	group     string
}

// NewHandler creates a Handler writing to w
func NewHandler(w io.Writer, opts *HandlerOptions) *Handler {
	h := &Handler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var levelStr string
	var levelColor *color.Color
	switch {
	case r.Level >= slog.LevelError:
		levelStr, levelColor = "ERROR", errorColor
	case r.Level >= slog.LevelWarn:
		levelStr, levelColor = "WARN", warnColor
	case r.Level >= slog.LevelInfo:
		levelStr, levelColor = "INFO", infoColor
	default:
		levelStr, levelColor = "DEBUG", debugColor
	}

	component := h.component
	var b strings.Builder
	writeAttr := func(a slog.Attr) {
		if a.Key == componentKey {
			component = a.Value.String()
			return
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value.Any())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	line := ts.Format(TimeFormat)
	if levelStr != "INFO" {
		line += " " + levelColor.Sprintf("[%s]", levelStr)
	}
	if component != "" {
		tag := strings.ToUpper(component)
		line += " " + componentColor(tag).Sprintf("[%s]", tag)
	}
	line += " " + r.Message + b.String() + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	for _, a := range attrs {
		if a.Key == componentKey {
			nh.component = a.Value.String()
		}
	}
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	nh := *h
	if nh.group != "" {
		name = nh.group + "." + name
	}
	nh.group = name
	return &nh
}

func componentColor(tag string) *color.Color {
	sum := 0
	for _, c := range tag {
		sum += int(c)
	}
	return componentColors[sum%len(componentColors)]
}
