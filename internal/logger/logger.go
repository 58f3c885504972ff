// Package logger provides structured logging with custom levels and formatting
// for dropsminer.
//
// Two sinks are supported. The console sink writes short, optionally coloured
// lines for the terminal:
//
//	15:04:05 LEVEL: message | key=value, key2=value2
//
// The file sink (enabled with --log) writes the strict format to a rotating
// file:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, key2=value2
//
// Custom levels beyond the standard slog set:
//   - LevelTrace (-8): verbose diagnostic tracing
//   - LevelCall  (-2): per-request tracing, between Debug and Info
//   - LevelFail  (12): unrecoverable errors
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Custom Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug // -4
	LevelCall  slog.Level = -2
	LevelInfo  slog.Level = slog.LevelInfo  // 0
	LevelWarn  slog.Level = slog.LevelWarn  // 4
	LevelError slog.Level = slog.LevelError // 8
	LevelFail  slog.Level = 12
)

// levelTable maps verbosity (the number of -v flags) to the root level.
var levelTable = [...]slog.Level{LevelError, LevelWarn, LevelInfo, LevelCall, LevelDebug}

// MaxVerbosity is the highest verbosity with its own entry in the level table.
const MaxVerbosity = len(levelTable) - 1

// LevelFor returns the root logging level for verbosity v. Values outside
// 0..MaxVerbosity are clamped.
func LevelFor(v int) slog.Level {
	return levelTable[ClampVerbosity(v)]
}

// ClampVerbosity limits v to 0..MaxVerbosity.
func ClampVerbosity(v int) int {
	return min(max(v, 0), MaxVerbosity)
}

// LevelName returns the display name for a log level.
func LevelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelCall:
		return "CALL"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARN"
	case l <= LevelError:
		return "ERROR"
	default:
		return "FAIL"
	}
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

// lineEnding is CRLF on Windows, LF elsewhere.
var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler is the strict file formatter:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, ...
type Handler struct {
	// w is the destination writer for formatted log output.
	w io.Writer
	// mu serializes writes to w so concurrent log calls do not interleave.
	mu *sync.Mutex
	// level is the minimum severity that this handler will emit.
	level slog.Level
	// attrs holds pre-applied attributes added via [Handler.WithAttrs].
	attrs []slog.Attr
	// group is the dot-separated attribute key prefix set via [Handler.WithGroup].
	group string
}

// NewHandler creates a Handler that writes to w, filtering records below level.
func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	buf.WriteString(" [")
	buf.WriteString(LevelName(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)
	writeAttrs(&buf, h.group, h.attrs, r)
	buf.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

// WithAttrs returns a new Handler with the given attributes pre-applied.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{w: h.w, mu: h.mu, level: h.level, attrs: appendAttrs(h.attrs, attrs), group: h.group}
}

// WithGroup returns a new Handler with the given group name.
// Attributes logged through the returned handler will have keys
// prefixed with the group name (e.g., "group.key").
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, attrs: h.attrs, group: joinGroup(h.group, name)}
}

// ///////////////////////////////////////////////
// Console Handler
// ///////////////////////////////////////////////

// levelColors colours the console level tag.
var levelColors = map[string]color.Attribute{
	"TRACE": color.FgHiBlack,
	"DEBUG": color.FgHiBlack,
	"CALL":  color.FgCyan,
	"INFO":  color.FgGreen,
	"WARN":  color.FgYellow,
	"ERROR": color.FgRed,
	"FAIL":  color.FgHiRed,
}

// ConsoleHandler is the terminal formatter:
//
//	15:04:05 LEVEL: message | key=value, ...
//
// Times are local. The level tag is coloured when colorize is set.
type ConsoleHandler struct {
	w        io.Writer
	mu       *sync.Mutex
	colorize bool
	attrs    []slog.Attr
	group    string
}

// NewConsoleHandler creates a ConsoleHandler writing to w. It does not filter;
// wrap it with [WithLevel] for that.
func NewConsoleHandler(w io.Writer, colorize bool) *ConsoleHandler {
	return &ConsoleHandler{w: w, mu: &sync.Mutex{}, colorize: colorize}
}

func (h *ConsoleHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(r.Time.Format("15:04:05"))
	buf.WriteByte(' ')
	name := LevelName(r.Level)
	if h.colorize {
		c := color.New(levelColors[name])
		c.EnableColor()
		name = c.Sprint(name)
	}
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(r.Message)
	writeAttrs(&buf, h.group, h.attrs, r)
	buf.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{w: h.w, mu: h.mu, colorize: h.colorize, attrs: appendAttrs(h.attrs, attrs), group: h.group}
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ConsoleHandler{w: h.w, mu: h.mu, colorize: h.colorize, attrs: h.attrs, group: joinGroup(h.group, name)}
}

// ///////////////////////////////////////////////
// Attribute Formatting
// ///////////////////////////////////////////////

// writeAttrs appends " | k=v, k2=v2" for the pre-applied and record attrs.
func writeAttrs(buf *strings.Builder, group string, pre []slog.Attr, r slog.Record) {
	all := make([]slog.Attr, 0, len(pre)+r.NumAttrs())
	all = append(all, pre...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, a)
		return true
	})
	if len(all) == 0 {
		return
	}

	buf.WriteString(" | ")
	for i, a := range all {
		if i > 0 {
			buf.WriteString(", ")
		}
		if group != "" {
			buf.WriteString(group)
			buf.WriteString(".")
		}
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
	}
}

func appendAttrs(base, extra []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(base), len(base)+len(extra))
	copy(out, base)
	return append(out, extra...)
}

func joinGroup(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// ///////////////////////////////////////////////
// Composite Handlers
// ///////////////////////////////////////////////

// levelHandler drops records below level before passing them on.
type levelHandler struct {
	level slog.Leveler
	next  slog.Handler
}

// WithLevel returns a handler that filters records below level and forwards
// the rest to next.
func WithLevel(next slog.Handler, level slog.Leveler) slog.Handler {
	return &levelHandler{level: level, next: next}
}

func (h *levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.next.Enabled(ctx, l)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, next: h.next.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, next: h.next.WithGroup(name)}
}

// fanout sends every record to each enabled handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// ///////////////////////////////////////////////
// Logging Setup
// ///////////////////////////////////////////////

// Options configures [New].
type Options struct {
	// Level is the root logger's minimum level.
	Level slog.Level
	// Console receives terminal output. Nil disables the console sink.
	Console io.Writer
	// Color enables coloured level tags on the console.
	Color bool
	// File is the rotating log file path. Empty disables the file sink.
	File string
	// MaxSizeMB is the file size at which the log is rotated.
	MaxSizeMB int
	// RunID, when set, is attached to every record as the "run" attribute.
	RunID string
}

// Logging owns the sinks shared by the root logger and its channels.
type Logging struct {
	// Root is the application logger, filtered at Options.Level.
	Root *slog.Logger

	// sink is the unfiltered fan-out of all sinks with run attrs applied.
	sink slog.Handler
	// file is the rotating file sink, nil when disabled.
	file *lumberjack.Logger
}

// New builds the sinks described by opts. Close must be called to flush the
// file sink.
func New(opts Options) (*Logging, error) {
	var sinks fanout
	if opts.Console != nil {
		sinks = append(sinks, NewConsoleHandler(opts.Console, opts.Color))
	}

	l := &Logging{}
	if opts.File != "" {
		if opts.MaxSizeMB <= 0 {
			return nil, fmt.Errorf("log max size must be positive, got %d", opts.MaxSizeMB)
		}
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28,
		}
		sinks = append(sinks, NewHandler(l.file, LevelTrace))
	}

	var sink slog.Handler = sinks
	if opts.RunID != "" {
		sink = sink.WithAttrs([]slog.Attr{slog.String("run", opts.RunID)})
	}
	l.sink = sink
	l.Root = slog.New(WithLevel(sink, opts.Level))
	return l, nil
}

// Channel returns a logger for a named subsystem that filters at its own
// level instead of the root's. Records carry a "channel" attribute.
func (l *Logging) Channel(name string, level slog.Level) *slog.Logger {
	h := l.sink.WithAttrs([]slog.Attr{slog.String("channel", name)})
	return slog.New(WithLevel(h, level))
}

// Close flushes and closes the file sink, if any.
func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ///////////////////////////////////////////////
// Helper Functions
// ///////////////////////////////////////////////

// Call logs a message at LevelCall.
func Call(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelCall, msg, args...)
}

// Fail logs a message at LevelFail.
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}
