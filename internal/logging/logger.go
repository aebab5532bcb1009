package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type Logger struct {
	*slog.Logger
	verbose bool
}

// NewLogger builds the process logger. Format is "text" or "json";
// verbose drops the level to Debug.
func NewLogger(format string, verbose bool, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	var level slog.Level
	if verbose {
		level = slog.LevelDebug
	} else {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	var application string
	if len(os.Args) > 0 {
		application = filepath.Base(os.Args[0])
	}

	logger := slog.New(handler).With(
		slog.String("service", application),
	)

	return &Logger{
		Logger:  logger,
		verbose: verbose,
	}
}

// SetAsDefault routes the standard log and slog packages through this logger.
func (l *Logger) SetAsDefault() {
	slog.SetDefault(l.Logger)
	if l.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}
}

// Verbose logs a message only when verbose logging is enabled.
func (l *Logger) Verbose(msg string, args ...any) {
	if l.verbose {
		l.Debug(msg, args...)
	}
}

// LogError logs an error with context.
func (l *Logger) LogError(msg string, err error, args ...any) {
	allArgs := append([]any{slog.String("error", err.Error())}, args...)
	l.Error(msg, allArgs...)
}

// LogSweepStats logs a sweep summary in a structured way.
func (l *Logger) LogSweepStats(checked, sent, skipped, failed int, duration string) {
	l.Info("sweep_completed",
		"checked", checked,
		"sent", sent,
		"skipped", skipped,
		"failed", failed,
		"duration", duration,
	)
}
