package host

import (
	"github.com/reglet-dev/triebridge/codec"
	"github.com/reglet-dev/triebridge/hostfuncs"
	"go.uber.org/zap"
)

type hostConfig struct {
	codec      *codec.Codec
	logger     *zap.Logger
	maxHeap    int
	middleware []hostfuncs.Middleware
	faults     hostfuncs.FaultInjector
}

// Option defines a functional option for configuring a Host.
type Option func(*hostConfig)

// WithCodec sets the codec used for bulk operations.
func WithCodec(c *codec.Codec) Option {
	return func(cfg *hostConfig) {
		cfg.codec = c
	}
}

// WithLogger sets the logger. Every gateway call is logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *hostConfig) {
		cfg.logger = l
	}
}

// WithMaxHeap limits the live bytes on the host heap.
func WithMaxHeap(n int) Option {
	return func(cfg *hostConfig) {
		cfg.maxHeap = n
	}
}

// WithMiddleware adds gateway middleware.
func WithMiddleware(mw ...hostfuncs.Middleware) Option {
	return func(cfg *hostConfig) {
		cfg.middleware = append(cfg.middleware, mw...)
	}
}

// WithFaultInjector makes gateway calls fail on purpose.
func WithFaultInjector(f hostfuncs.FaultInjector) Option {
	return func(cfg *hostConfig) {
		cfg.faults = f
	}
}
