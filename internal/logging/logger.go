// Package logging provides config-driven categorized file logging for savesmith.
// Logs are written to <state dir>/logs/ with one file per category.
// Logging is controlled by logging.debug_mode in the config - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"savesmith/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot        Category = "boot"        // Startup, config, wiring
	CategoryAPI         Category = "api"         // Backend HTTP calls
	CategoryPoller      Category = "poller"      // Readiness polling
	CategoryCache       Category = "cache"       // Subsystem cache loads and invalidation
	CategorySession     Category = "session"     // Character open/close, mutations
	CategoryEditor      Category = "editor"      // Tab routing
	CategorySaves       Category = "saves"       // File browser, directory watcher
	CategoryStore       Category = "store"       // Recent saves database
	CategoryUI          Category = "ui"          // TUI events
	CategoryPerformance Category = "performance" // Slow operations
)

var (
	loggers   = make(map[Category]*zap.Logger)
	files     = make(map[Category]*os.File)
	loggersMu sync.RWMutex

	logsDir  string
	settings config.LoggingConfig
	level    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	configMu sync.RWMutex
)

// Initialize sets up the logging directory from the logging config.
// Should be called once at startup. With debug_mode off it is a no-op and
// every logger returned by Get discards its output.
func Initialize(dir string, lc config.LoggingConfig) error {
	if dir == "" {
		return fmt.Errorf("logs directory required")
	}

	CloseAll()

	configMu.Lock()
	logsDir = dir
	settings = lc
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil || lc.Level == "" {
		level.SetLevel(zapcore.InfoLevel)
	}
	configMu.Unlock()

	if !lc.DebugMode {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	Boot("logging initialized dir=%s level=%s format=%s", dir, level.Level(), lc.Format)
	return nil
}

// IsDebugMode returns whether category logging is enabled at all.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.IsCategoryEnabled(string(category))
}

// Get returns (or creates) the logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *zap.Logger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop()
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	configMu.RLock()
	dir, format := logsDir, settings.Format
	configMu.RUnlock()
	if dir == "" {
		return zap.NewNop()
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return zap.NewNop()
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if format == "console" || format == "text" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	l := zap.New(zapcore.NewCore(encoder, zapcore.AddSync(file), level)).Named(string(category))
	loggers[category] = l
	files[category] = file
	return l
}

// Sugar returns the printf-style logger for a category.
func Sugar(category Category) *zap.SugaredLogger {
	return Get(category).Sugar()
}

// WithRequestID returns a category logger carrying a correlation ID.
func WithRequestID(category Category, requestID string) *zap.Logger {
	return Get(category).With(zap.String("req", requestID))
}

// CloseAll flushes and closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for cat, l := range loggers {
		_ = l.Sync()
		if f := files[cat]; f != nil {
			f.Close()
		}
	}
	loggers = make(map[Category]*zap.Logger)
	files = make(map[Category]*os.File)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Sugar(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Sugar(CategoryBoot).Debugf(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Sugar(CategoryAPI).Infof(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Sugar(CategoryAPI).Debugf(format, args...)
}

// Poller logs to the poller category
func Poller(format string, args ...interface{}) {
	Sugar(CategoryPoller).Infof(format, args...)
}

// PollerDebug logs debug to the poller category
func PollerDebug(format string, args ...interface{}) {
	Sugar(CategoryPoller).Debugf(format, args...)
}

// Cache logs to the cache category
func Cache(format string, args ...interface{}) {
	Sugar(CategoryCache).Infof(format, args...)
}

// CacheDebug logs debug to the cache category
func CacheDebug(format string, args ...interface{}) {
	Sugar(CategoryCache).Debugf(format, args...)
}

// Session logs to the session category
func Session(format string, args ...interface{}) {
	Sugar(CategorySession).Infof(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) {
	Sugar(CategorySession).Debugf(format, args...)
}

// Editor logs to the editor category
func Editor(format string, args ...interface{}) {
	Sugar(CategoryEditor).Infof(format, args...)
}

// EditorDebug logs debug to the editor category
func EditorDebug(format string, args ...interface{}) {
	Sugar(CategoryEditor).Debugf(format, args...)
}

// Saves logs to the saves category
func Saves(format string, args ...interface{}) {
	Sugar(CategorySaves).Infof(format, args...)
}

// SavesDebug logs debug to the saves category
func SavesDebug(format string, args ...interface{}) {
	Sugar(CategorySaves).Debugf(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Sugar(CategoryStore).Infof(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Sugar(CategoryStore).Debugf(format, args...)
}

// UI logs to the ui category
func UI(format string, args ...interface{}) {
	Sugar(CategoryUI).Infof(format, args...)
}

// UIDebug logs debug to the ui category
func UIDebug(format string, args ...interface{}) {
	Sugar(CategoryUI).Debugf(format, args...)
}

// Warn logs a warning to any category
func Warn(category Category, format string, args ...interface{}) {
	Sugar(category).Warnf(format, args...)
}

// Error logs an error to any category
func Error(category Category, format string, args ...interface{}) {
	Sugar(category).Errorf(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning to the performance category if the
// duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(CategoryPerformance).Warn("slow operation",
			zap.String("category", string(t.category)),
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	} else {
		Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
