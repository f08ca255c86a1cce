// Package logging is the process-wide diagnostic log. It is separate from the
// structured event log in internal/otel: this one is for humans reading a
// file after something went wrong.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	current = newLogger(io.Discard, log.InfoLevel)
	file    *os.File
)

func newLogger(w io.Writer, lv log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lv,
	})
}

func get() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init opens logs/showroom-<date>.log under dataDir and logs there at level.
// An empty dataDir means ~/.showroom.
func Init(dataDir, level string) error {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".showroom")
	}

	dir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, "showroom-"+time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = f
	current = newLogger(f, ParseLevel(level))
	mu.Unlock()

	Info("log opened", "path", path)
	return nil
}

// Use logs to w instead of a file. shr points it at stderr.
func Use(w io.Writer, level string) {
	mu.Lock()
	current = newLogger(w, ParseLevel(level))
	mu.Unlock()
}

// ParseLevel maps a config string to a log level. Unknown values mean info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Close closes the log file opened by Init, if any, and goes quiet.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		current.Info("log closed")
		file.Close()
		file = nil
	}
	current = newLogger(io.Discard, log.InfoLevel)
}

func Debug(msg string, keyvals ...any) { get().Debug(msg, keyvals...) }
func Info(msg string, keyvals ...any)  { get().Info(msg, keyvals...) }
func Warn(msg string, keyvals ...any)  { get().Warn(msg, keyvals...) }
func Error(msg string, keyvals ...any) { get().Error(msg, keyvals...) }

// For returns a logger prefixed with comp, bound to the current output.
func For(comp string) *log.Logger {
	return get().WithPrefix(comp)
}
