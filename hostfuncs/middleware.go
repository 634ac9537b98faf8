package hostfuncs

import (
	"context"

	"go.uber.org/zap"
)

// Middleware is a function that wraps a CallHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	countingMiddleware := func(next CallHandler) CallHandler {
//	    return func(ctx context.Context, c *Call) (int64, error) {
//	        calls[c.Op]++
//	        return next(ctx, c)
//	    }
//	}
type Middleware func(next CallHandler) CallHandler

// PanicRecoveryMiddleware returns a middleware that catches panics raised by
// readers and writers and turns them into errors, so a fault never unwinds
// across the gateway.
func PanicRecoveryMiddleware() Middleware {
	return func(next CallHandler) CallHandler {
		return func(ctx context.Context, c *Call) (n int64, err error) {
			defer func() {
				if r := recover(); r != nil {
					n, err = 0, NewPanicError(c.Op, r)
				}
			}()
			return next(ctx, c)
		}
	}
}

// LoggingMiddleware returns a middleware that logs every gateway call at
// debug level.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CallHandler) CallHandler {
		return func(ctx context.Context, c *Call) (int64, error) {
			fields := []zap.Field{
				zap.Stringer("op", c.Op),
				zap.Int32("iid", int32(c.Handle)),
				zap.Uint64("seq", c.Seq),
			}
			if c.Op == OpCheck {
				fields = append(fields, zap.Stringer("caps", c.Caps))
			} else {
				fields = append(fields, zap.Int("len", len(c.Buf)))
			}

			n, err := next(ctx, c)
			if err != nil {
				logger.Debug("gateway call failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("gateway call", append(fields, zap.Int64("result", n))...)
			}
			return n, err
		}
	}
}

// FaultMiddleware returns a middleware that consults f before each call and
// fails the call without touching the stream when f returns an error.
func FaultMiddleware(f FaultInjector) Middleware {
	return func(next CallHandler) CallHandler {
		return func(ctx context.Context, c *Call) (int64, error) {
			if err := f.Inject(c); err != nil {
				return 0, err
			}
			return next(ctx, c)
		}
	}
}
