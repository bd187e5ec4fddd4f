// Package logger provides the slog handler used by the nvimcord RPC job.
//
// Standard output belongs to the msgpack-rpc channel, so records are written
// to a rotating file and, optionally, to stderr where Neovim collects them
// through the job's on_stderr callback.
//
// Line format:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, group.key=value
package logger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelFail  slog.Level = 12
)

var levelNames = []struct {
	max  slog.Level
	name string
}{
	{LevelTrace, "TRACE"},
	{LevelDebug, "DEBUG"},
	{LevelInfo, "INFO"},
	{LevelWarn, "WARN"},
	{LevelError, "ERROR"},
}

func levelName(l slog.Level) string {
	for _, n := range levelNames {
		if l <= n.max {
			return n.name
		}
	}
	return "FAIL"
}

// ParseLevel maps a config level name to a slog level, case-insensitively.
// Unknown names map to [LevelInfo].
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fail":
		return LevelFail
	}
	return LevelInfo
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler formats records as single text lines. Clones made by WithAttrs
// and WithGroup share the writer lock.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	// prefix is prepended to keys of record attributes ("a.b.").
	prefix string
	// pre holds attributes already rendered as key=value.
	pre []string
}

// NewHandler returns a Handler writing to w and dropping records below level.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{w: w, mu: &sync.Mutex{}, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := append([]string(nil), h.pre...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})

	var b strings.Builder
	b.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" [")
	b.WriteString(levelName(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)
	if len(fields) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(fields, ", "))
	}
	b.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		c.pre = appendAttr(c.pre, h.prefix, a)
	}
	return c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = h.prefix + name + "."
	return c
}

func (h *Handler) clone() *Handler {
	return &Handler{
		w:      h.w,
		mu:     h.mu,
		level:  h.level,
		prefix: h.prefix,
		pre:    append([]string(nil), h.pre...),
	}
}

// appendAttr renders a (possibly grouped) attribute into key=value fields.
func appendAttr(fields []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, inner, ga)
		}
		return fields
	}
	return append(fields, prefix+a.Key+"="+formatValue(a.Value))
}

// formatValue quotes values containing separators so lines stay parseable.
func formatValue(v slog.Value) string {
	s := v.String()
	if s == "" || strings.ContainsAny(s, " ,|=\"\n\t") {
		return strconv.Quote(s)
	}
	return s
}

// ///////////////////////////////////////////////
// Logger Constructor
// ///////////////////////////////////////////////

// Options configures [New].
type Options struct {
	// Path is the log file. Empty disables file output.
	Path string
	// Level is the minimum level written.
	Level slog.Level
	// MaxSizeMB is the rotation threshold of the log file.
	MaxSizeMB int
	// Stderr mirrors records to os.Stderr.
	Stderr bool
}

// New builds a logger from opts. The returned closer flushes and closes the
// rotating file; it is safe to call when no file was opened.
func New(opts Options) (*slog.Logger, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.Path != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = 5
		}
		lj := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    size,
			MaxBackups: 2,
			MaxAge:     14,
		}
		writers = append(writers, lj)
		closer = lj
	}
	if opts.Stderr {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}
	return slog.New(NewHandler(w, opts.Level)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Trace logs at [LevelTrace].
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs at [LevelFail].
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// ReadTail returns the last n lines of the file at path joined by "\n".
func ReadTail(path string, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		ring[count%n] = strings.TrimRight(sc.Text(), "\r")
		count++
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}

	if count <= n {
		return strings.Join(ring[:count], "\n"), nil
	}
	start := count % n
	return strings.Join(append(ring[start:], ring[:start]...), "\n"), nil
}
