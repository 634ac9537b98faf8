// Package log provides the zap logger shared by the codec and the host.
// Nothing is logged until a logger is installed with Set; the default is a
// no-op logger.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	current = zap.NewNop()
)

// Default returns the process logger.
func Default() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set replaces the process logger. A nil logger restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	current = l
	mu.Unlock()
}

// Option configures New.
type Option func(*config)

type config struct {
	level       zapcore.Level
	development bool
	fields      []zap.Field
}

// defaultConfig returns the default configuration.
func defaultConfig() config {
	return config{
		level: zapcore.InfoLevel,
	}
}

// WithLevel sets the minimum level to report.
func WithLevel(level zapcore.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithDevelopment switches to the human-readable console encoder.
func WithDevelopment(enabled bool) Option {
	return func(c *config) {
		c.development = enabled
	}
}

// WithFields attaches fields to every entry.
func WithFields(fields ...zap.Field) Option {
	return func(c *config) {
		c.fields = append(c.fields, fields...)
	}
}

// New builds a logger writing to stderr.
func New(opts ...Option) (*zap.Logger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	zc := zap.NewProductionConfig()
	if cfg.development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.level)

	l, err := zc.Build(zap.Fields(cfg.fields...))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// ParseLevel parses a level name such as "debug" or "warn". The empty string
// means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(s)
}
