// Package logging provides file logging for the coreorc worker process.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultLogDir returns the default log directory following XDG Base Directory Spec.
// Uses $XDG_STATE_HOME/coreorc/logs, defaulting to ~/.local/state/coreorc/logs.
func DefaultLogDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "coreorc", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "coreorc", "logs")
	}
	return filepath.Join(home, ".local", "state", "coreorc", "logs")
}

// level represents the logging level.
type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

// Logger wraps the standard logger with level filtering and file output.
type Logger struct {
	level    level
	logger   *log.Logger
	file     *os.File
	filePath string
}

// Setup creates a new logger that writes to a timestamped run-log file.
// Returns nil if logging is disabled (noLog=true).
// cmdArgs should be os.Args, logged once at startup for reproducibility.
func Setup(logDir string, verbose, noLog bool, cmdArgs []string) (*Logger, error) {
	if noLog {
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("coreorc_worker_run_%s.log", timestamp)
	filePath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	lvl := levelInfo
	if verbose {
		lvl = levelDebug
	}

	logger := log.New(file, "", 0) // timestamps are added manually for a consistent format

	l := &Logger{
		level:    lvl,
		logger:   logger,
		file:     file,
		filePath: filePath,
	}

	l.Info("command: %s", strings.Join(cmdArgs, " "))
	l.Info("coreorc worker starting")
	if verbose {
		l.Info("debug level logging enabled")
	}
	l.Info("log file: %s", filePath)

	return l, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) write(lvl level, tag, format string, args ...any) {
	if l == nil || lvl < l.level {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf("%s ["+tag+"] "+format, append([]any{timestamp}, args...)...)
}

// Debug logs a debug-level message (only if verbose mode is enabled).
func (l *Logger) Debug(format string, args ...any) { l.write(levelDebug, "DEBUG", format, args...) }

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...any) { l.write(levelInfo, "INFO", format, args...) }

// Warn logs a warn-level message.
func (l *Logger) Warn(format string, args ...any) { l.write(levelWarn, "WARN", format, args...) }

// Error logs an error-level message.
func (l *Logger) Error(format string, args ...any) { l.write(levelError, "ERROR", format, args...) }

// Writer returns an io.Writer that writes to the log file.
// Useful for redirecting other loggers or capturing output.
func (l *Logger) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return l.file
}
