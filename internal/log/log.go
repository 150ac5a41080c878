package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     atomic.Pointer[slog.Logger]
	loggerOnce sync.Once
	level      = new(slog.LevelVar)
)

// initLogger installs a tint console handler on stderr. The level is shared
// through a LevelVar so SetLevel takes effect without rebuilding handlers.
func initLogger() {
	loggerOnce.Do(func() {
		level.Set(slog.LevelInfo)
		logger.Store(newLogger(os.Stderr, false))
	})
}

func newLogger(w io.Writer, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339Nano,
		NoColor:    noColor,
	}))
}

// SetOutput redirects uncolored log output to w, mainly for tests. It is
// safe to call while other goroutines log.
func SetOutput(w io.Writer) {
	initLogger()
	logger.Store(newLogger(w, true))
}

func SetLevel(l Level) {
	initLogger()
	level.Set(toSlog(l))
}

// ParseLevel maps a config string onto a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger exposes the underlying slog logger for libraries that take one.
func Logger() *slog.Logger {
	initLogger()
	return logger.Load()
}

func Debug(msg string, kv ...any) {
	Logger().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Logger().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	Logger().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	Logger().Error(msg, append([]any{tint.Err(err)}, kv...)...)
}

func toSlog(l Level) slog.Level {
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
