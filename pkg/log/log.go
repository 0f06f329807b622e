package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
	levelVar      *slog.LevelVar
)

// Format selects the slog handler used for the default logger.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func init() {
	levelVar = &slog.LevelVar{}
	levelVar.Set(slog.LevelInfo)
	defaultLogger = slog.New(newHandler(os.Stderr, FormatText))
}

func newHandler(w io.Writer, format Format) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: levelVar,
	}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Configure replaces the default logger's destination and format.
// The current level is kept.
func Configure(w io.Writer, format Format) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defaultLogger = slog.New(newHandler(w, format))
	mu.Unlock()
}

// ParseFormat maps a config value to a Format, defaulting to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

func SetLevel(level slog.Level) { levelVar.Set(level) }

func SetDebug(enabled bool) {
	if enabled {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

func IsDebug() bool { return levelVar.Level() == slog.LevelDebug }

func GetLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func WithModule(module string) *slog.Logger {
	return GetLogger().With(slog.String("module", module))
}

// Structured Logging
func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }

