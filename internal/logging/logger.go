// Package logging provides the structured, leveled logger threaded through
// every twmangle component.
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
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config value ("debug", "info", "warn", "error") to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(err error, msg string, fields ...any)
	Error(err error, msg string, fields ...any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	fields    []any
}

// NewLogger creates a new structured logger
func NewLogger(config *LoggerConfig) *SlogLogger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &SlogLogger{
		logger:    slog.New(handler),
		level:     config.Level,
		component: config.Component,
	}
}

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, fields ...any) {
	if l.level > LevelDebug {
		return
	}
	l.log(slog.LevelDebug, nil, msg, fields...)
}

// Info logs an info message
func (l *SlogLogger) Info(msg string, fields ...any) {
	if l.level > LevelInfo {
		return
	}
	l.log(slog.LevelInfo, nil, msg, fields...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(err error, msg string, fields ...any) {
	if l.level > LevelWarn {
		return
	}
	l.log(slog.LevelWarn, err, msg, fields...)
}

// Error logs an error message
func (l *SlogLogger) Error(err error, msg string, fields ...any) {
	l.log(slog.LevelError, err, msg, fields...)
}

// With creates a new logger with additional fields
func (l *SlogLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &SlogLogger{
		logger:    l.logger,
		level:     l.level,
		component: l.component,
		fields:    merged,
	}
}

// WithComponent creates a new logger with component context
func (l *SlogLogger) WithComponent(component string) Logger {
	return &SlogLogger{
		logger:    l.logger,
		level:     l.level,
		component: component,
		fields:    l.fields,
	}
}

func (l *SlogLogger) log(level slog.Level, err error, msg string, fields ...any) {
	attrs := make([]slog.Attr, 0, len(l.fields)/2+len(fields)/2+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = appendPairs(attrs, l.fields)
	attrs = appendPairs(attrs, fields)

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)
	_ = l.logger.Handler().Handle(context.Background(), record)
}

func appendPairs(attrs []slog.Attr, fields []any) []slog.Attr {
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}
	return attrs
}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(error, string, ...any)  {}
func (nopLogger) Error(error, string, ...any) {}
func (n nopLogger) With(...any) Logger        { return n }
func (n nopLogger) WithComponent(string) Logger {
	return n
}

// Collector wraps a Logger and keeps a copy of every warning and error
// message, so a build can hand them to its caller after the run.
type Collector struct {
	inner Logger
	sink  *collected
}

type collected struct {
	mu       sync.Mutex
	messages []string
}

// NewCollector wraps inner. A nil inner discards output but still collects.
func NewCollector(inner Logger) *Collector {
	if inner == nil {
		inner = Nop()
	}
	return &Collector{inner: inner, sink: &collected{}}
}

// Debug forwards to the wrapped logger.
func (c *Collector) Debug(msg string, fields ...any) { c.inner.Debug(msg, fields...) }

// Info forwards to the wrapped logger.
func (c *Collector) Info(msg string, fields ...any) { c.inner.Info(msg, fields...) }

// Warn records and forwards.
func (c *Collector) Warn(err error, msg string, fields ...any) {
	c.sink.add(format(err, msg, fields))
	c.inner.Warn(err, msg, fields...)
}

// Error records and forwards.
func (c *Collector) Error(err error, msg string, fields ...any) {
	c.sink.add(format(err, msg, fields))
	c.inner.Error(err, msg, fields...)
}

// With keeps collecting into the same sink.
func (c *Collector) With(fields ...any) Logger {
	return &Collector{inner: c.inner.With(fields...), sink: c.sink}
}

// WithComponent keeps collecting into the same sink.
func (c *Collector) WithComponent(component string) Logger {
	return &Collector{inner: c.inner.WithComponent(component), sink: c.sink}
}

// Messages returns the collected warning and error lines in emission order.
func (c *Collector) Messages() []string {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return append([]string(nil), c.sink.messages...)
}

func (s *collected) add(msg string) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func format(err error, msg string, fields []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}
