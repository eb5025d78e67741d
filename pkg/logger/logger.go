package logger

import (
	"log/slog"
	"os"

	"github.com/mama165/sdk-go/logs"
)

// New returns a structured logger for the given level name (debug, info, warn, error).
func New(level string) *slog.Logger {
	return logs.GetLoggerFromString(level)
}

// NewWithLevel is used by tests that want a fixed level.
func NewWithLevel(level slog.Level) *slog.Logger {
	return logs.GetLoggerFromLevel(level)
}

// Global logger instance, replaced by SetDefault once configuration is loaded.
var GlobalLogger = logs.GetLoggerFromLevel(slog.LevelInfo)

func SetDefault(l *slog.Logger) {
	GlobalLogger = l
	slog.SetDefault(l)
}

// Convenience functions
func Info(msg string, args ...any) {
	GlobalLogger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	GlobalLogger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	GlobalLogger.Debug(msg, args...)
}

func Fatal(msg string, args ...any) {
	GlobalLogger.Error(msg, args...)
	os.Exit(1)
}
