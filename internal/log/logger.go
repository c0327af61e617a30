package log

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// ParseLevel maps a config level name to a slog level.
// logic: default to INFO. If level is invalid, fallback to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a JSON logger writing to w.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Setup initializes the global logger.
func Setup(level string) {
	once.Do(func() {
		logger = New(os.Stdout, level)
		slog.SetDefault(logger)
	})
}

// Get returns the configured logger, or a default one if Setup hasn't been called.
func Get() *slog.Logger {
	if logger == nil {
		Setup("INFO")
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// RequestLine is the single structured record emitted per handled request.
type RequestLine struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	LatencyMS float64
	// Extra holds stage-specific key/value pairs, appended in order.
	Extra []any
}

// Request writes line at INFO for success, WARN for client errors and
// ERROR for server errors.
func Request(ctx context.Context, l *slog.Logger, line RequestLine) {
	level := slog.LevelInfo
	switch {
	case line.Status >= 500:
		level = slog.LevelError
	case line.Status >= 400:
		level = slog.LevelWarn
	}

	args := make([]any, 0, 10+len(line.Extra))
	args = append(args,
		"request_id", line.RequestID,
		"method", line.Method,
		"path", line.Path,
		"status", line.Status,
		"latency_ms", RoundMillis(line.LatencyMS),
	)
	args = append(args, line.Extra...)
	l.Log(ctx, level, "request", args...)
}

// RoundMillis rounds to two decimal places.
func RoundMillis(ms float64) float64 {
	return math.Round(ms*100) / 100
}
