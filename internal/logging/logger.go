// Package logging provides config-driven categorized logging for snaptools.
// Every tool logs through a zap logger named after its category; categories
// switched off in the config receive a no-op logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"snaptools/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, config loading
	CategoryDiff    Category = "diff"    // Diff checker
	CategoryWatch   Category = "watch"   // File watching for live diffs
	CategoryCapture Category = "capture" // Frame capture from sources
	CategoryGIF     Category = "gif"     // Quantization and GIF encoding
	CategoryHash    Category = "hash"    // Hash generator
	CategoryCard    Category = "card"    // Card number validator
)

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	cfg     config.LoggingConfig
	loggers = make(map[Category]*zap.Logger)
)

// Initialize builds the process logger from the logging config and installs it.
// Console encoding is the default; format "json" switches to the production encoder.
func Initialize(c config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.EffectiveLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.EffectiveLevel(), err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	if c.Format != "json" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zc.OutputPaths = []string{"stderr"}
	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = []string{c.File}
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetLogger(l, c)
	l.Named(string(CategoryBoot)).Debug("logging initialized",
		zap.String("level", level.String()),
		zap.String("format", zc.Encoding),
		zap.Strings("outputs", zc.OutputPaths),
	)
	return l, nil
}

// SetLogger installs l as the base logger with the given category filter.
func SetLogger(l *zap.Logger, c config.LoggingConfig) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	cfg = c
	loggers = make(map[Category]*zap.Logger)
}

// Reset restores the no-op logger.
func Reset() {
	SetLogger(nil, config.LoggingConfig{})
}

// L returns the base logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	l := zap.NewNop()
	if cfg.IsCategoryEnabled(string(category)) {
		l = base.Named(string(category))
	}
	loggers[category] = l
	return l
}

// Sync flushes the base logger.
func Sync() error {
	return L().Sync()
}

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

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop(fields ...zap.Field) time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug(t.op+" completed", append(fields, zap.Duration("elapsed", elapsed))...)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration, fields ...zap.Field) time.Duration {
	elapsed := time.Since(t.start)
	fields = append(fields, zap.Duration("elapsed", elapsed))
	if elapsed > threshold {
		Get(t.category).Warn(t.op+" was slow", append(fields, zap.Duration("threshold", threshold))...)
	} else {
		Get(t.category).Debug(t.op+" completed", fields...)
	}
	return elapsed
}
