// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for the calculator.
//
// The logger is built on log/slog and writes to up to two destinations:
//
//	┌───────────────────────────────────────────────┐
//	│                    Logger                     │
//	│  ┌──────────────────┐  ┌───────────────────┐  │
//	│  │  console writer  │  │  append-only file │  │
//	│  │  (text or JSON)  │  │  (always JSON)    │  │
//	│  └──────────────────┘  └───────────────────┘  │
//	└───────────────────────────────────────────────┘
//
// The REPL writes results to stdout, so the console sink is normally turned
// off (Quiet) and everything goes to the log file.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogFile: "logs/calculator.log",
//	    Service: "calc",
//	    Quiet:   true,
//	})
//	defer logger.Close()
//
//	logger.Info("calculation performed", "operation", "add", "result", 3.0)
//
// Every entry carries the "service" attribute and a per-process
// "session_id" so runs can be told apart in a shared log file.
//
// # Thread Safety
//
// Logger is safe for concurrent use. The underlying slog.Logger is
// thread-safe and Close is guarded by a mutex.
//
// # Security Considerations
//
// This package does NOT redact anything. Operands and results are not
// sensitive, but file paths supplied by the user are logged verbatim.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity levels.
//
// Levels are ordered by severity: Debug < Info < Warn < Error. Setting a
// minimum level filters out everything below it.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	// Example: "dispatching command", "snapshot captured"
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	// Example: "calculation performed", "history saved"
	LevelInfo

	// LevelWarn is for recoverable problems.
	// Example: "auto-save failed", "history trimmed on load"
	LevelWarn

	// LevelError is for failed commands.
	// Example: "command failed"
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
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

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a case-insensitive level name to a Level.
//
// Accepts "debug", "info", "warn", "warning" and "error". An empty string
// yields LevelInfo.
//
// # Examples
//
//	lvl, err := logging.ParseLevel("WARNING") // LevelWarn, nil
//	lvl, err := logging.ParseLevel("loud")    // LevelInfo, error
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures the Logger.
//
// A zero-value Config writes Info+ messages to stderr as text.
type Config struct {
	// Level sets the minimum log level. Default: LevelInfo
	Level Level

	// LogFile enables file logging to an explicit path. The parent
	// directory is created with 0750 permissions and the file is opened in
	// append mode. Supports ~ expansion.
	LogFile string

	// LogDir enables file logging to "{Service}_{YYYY-MM-DD}.log" inside
	// the directory. Ignored when LogFile is set.
	LogDir string

	// Service is attached to every entry as the "service" attribute.
	Service string

	// JSON switches the console sink to JSON. File output is always JSON.
	JSON bool

	// Quiet disables the console sink.
	Quiet bool

	// Output replaces stderr as the console sink. Default: os.Stderr
	Output io.Writer

	// SessionID is attached to every entry. When empty a random UUID is
	// generated.
	SessionID string
}

// =============================================================================
// Logger
// =============================================================================

// Logger provides structured logging with console and file output.
//
// Always call Close when done so the log file is synced and closed:
//
//	logger := logging.New(config)
//	defer logger.Close()
//
// Use With to add attributes to every subsequent entry:
//
//	cmdLogger := logger.With("command", "add")
//	cmdLogger.Info("dispatching")
type Logger struct {
	slog      *slog.Logger
	config    Config
	sessionID string
	filePath  string

	// file is shared between a logger and its With children; only the root
	// closes it.
	file  *os.File
	owner bool
	mu    sync.Mutex
}

// New creates a Logger from config.
//
// A log file that cannot be opened is not fatal: the logger falls back to
// the console sink and FilePath returns "".
func New(config Config) *Logger {
	var handlers []slog.Handler

	opts := &slog.HandlerOptions{
		Level: config.Level.toSlogLevel(),
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(out, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(out, opts))
		}
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger := &Logger{
		config:    config,
		sessionID: sessionID,
		owner:     true,
	}

	if path := resolveLogPath(config); path != "" {
		if file, err := openLogFile(path); err == nil {
			logger.file = file
			logger.filePath = path
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	attrs := []slog.Attr{slog.String("session_id", sessionID)}
	if config.Service != "" {
		attrs = append(attrs, slog.String("service", config.Service))
	}
	handler = handler.WithAttrs(attrs)

	logger.slog = slog.New(handler)
	return logger
}

// Default returns an Info-level stderr logger for service "calc".
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "calc",
	})
}

// Discard returns a logger that drops every entry. Handy in tests.
func Discard() *Logger {
	return New(Config{Quiet: true})
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a message at Warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs a message at Error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// With returns a child Logger with additional attributes. The child shares
// the parent's file; closing the child does not close it.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:      l.slog.With(args...),
		config:    l.config,
		sessionID: l.sessionID,
		filePath:  l.filePath,
		file:      l.file,
	}
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// SessionID returns the session identifier attached to every entry.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// FilePath returns the path of the log file, or "" when file logging is
// disabled or the file could not be opened.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close syncs and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || !l.owner {
		return nil
	}

	var errs []error
	if err := l.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync log file: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	l.file = nil

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// =============================================================================
// Multi-Handler (Internal)
// =============================================================================

// multiHandler fans out log records to multiple slog handlers.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled returns true if any handler is enabled for the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all enabled handlers.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with a group name.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// =============================================================================
// Helper Functions
// =============================================================================

// resolveLogPath picks the log file path: LogFile wins over LogDir.
func resolveLogPath(config Config) string {
	if config.LogFile != "" {
		return expandPath(config.LogFile)
	}
	if config.LogDir == "" {
		return ""
	}
	service := config.Service
	if service == "" {
		service = "calc"
	}
	filename := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return filepath.Join(expandPath(config.LogDir), filename)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

// expandPath expands a leading ~ to the user's home directory.
//
// Examples:
//   - "~/.calc/logs" -> "/home/user/.calc/logs"
//   - "/var/log" -> "/var/log" (unchanged)
//   - "relative/path" -> "relative/path" (unchanged)
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
