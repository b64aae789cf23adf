package bserve

import (
	"context"
	"time"

	"github.com/advdv/bkoa"
)

// DefaultDeadlineBuffer is the default time reserved before the request deadline
// for cleanup, error responses, and graceful shutdown.
const DefaultDeadlineBuffer = 500 * time.Millisecond

const maxReadHeaderTimeout = 5 * time.Second

// TimeoutConfig holds timeout configuration for the HTTP server.
type TimeoutConfig struct {
	// RequestTimeout bounds how long a single request may take.
	RequestTimeout time.Duration

	// DeadlineBuffer is subtracted from RequestTimeout for the server level timeouts so that the
	// per-request deadline fires first. Defaults to DefaultDeadlineBuffer.
	DeadlineBuffer time.Duration
}

// ServerTimeouts returns the http.Server timeout values. They are an outer bound, the
// per-request deadline of [WithRequestTimeout] fires first.
func (tc TimeoutConfig) ServerTimeouts() (readHeaderTimeout, readTimeout, writeTimeout, idleTimeout time.Duration) {
	if tc.RequestTimeout <= 0 {
		return maxReadHeaderTimeout, 0, 0, 0
	}

	buffer := tc.DeadlineBuffer
	if buffer <= 0 {
		buffer = DefaultDeadlineBuffer
	}

	// the server deadline leaves room for the error response of the request deadline
	timeout := tc.RequestTimeout + buffer

	readHeaderTimeout = min(timeout, maxReadHeaderTimeout)
	readTimeout = timeout
	writeTimeout = timeout
	idleTimeout = timeout

	return
}

// WithRequestTimeout returns middleware that gives downstream middleware a context with a deadline
// of d. The context is restored once downstream returns so the response can still be written.
// A non-positive d disables the deadline.
func WithRequestTimeout(d time.Duration) bkoa.Middleware {
	return func(c *bkoa.Context, next bkoa.Next) error {
		if d <= 0 {
			return next()
		}

		prev := c.Context
		ctx, cancel := context.WithTimeout(prev, d)
		defer cancel()

		c.SetContext(ctx)
		defer c.SetContext(prev)

		return next()
	}
}

// RequestRemainingTime returns the duration until the request context deadline.
// Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}

	return max(time.Until(deadline), 0)
}
