package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type Level slog.Level

var (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

var defaultLevel = Level(slog.LevelInfo)

// SetDefaultLevel sets the level used by loggers created without an explicit level.
func SetDefaultLevel(level Level) {
	defaultLevel = level
}

// NewHandlerOptions builds tint options suited for the current output.
// Colors and short timestamps on a terminal, RFC3339 otherwise.
func NewHandlerOptions(level Level) *tint.Options {
	timeFormat := time.Stamp
	isTerminal := isatty.IsTerminal(os.Stderr.Fd())
	if !isTerminal {
		timeFormat = time.RFC3339
	}
	return &tint.Options{
		Level:      slog.Level(level),
		NoColor:    !isTerminal,
		TimeFormat: timeFormat,
	}
}

// DefaultHandler returns a tint handler writing to stderr.
func DefaultHandler(level Level) slog.Handler {
	return tint.NewHandler(os.Stderr, NewHandlerOptions(level))
}

type LoggerOption func(*Logger)

func WithName(name string) LoggerOption {
	return func(l *Logger) {
		l.name = name
	}
}

func WithLevel(level Level) LoggerOption {
	return func(l *Logger) {
		l.level = level
	}
}

func WithHandler(handler slog.Handler) LoggerOption {
	return func(l *Logger) {
		l.handler = handler
	}
}

// Logger is a named slog logger with a tint handler by default.
type Logger struct {
	*slog.Logger
	level   Level
	handler slog.Handler
	name    string
}

// NewLogger creates a new logger instance.
func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		name:  "assetsync",
		level: defaultLevel,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.handler == nil {
		l.handler = DefaultHandler(l.level)
	}
	l.Logger = slog.New(l.handler).WithGroup(l.name)
	return l
}

func (l *Logger) WithGroup(group string) *Logger {
	return &Logger{
		Logger:  l.Logger.WithGroup(group),
		level:   l.level,
		handler: l.handler,
		name:    l.name,
	}
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
