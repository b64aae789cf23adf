// Package example implements example middleware in an outside package.
package example

import (
	"context"
	"log/slog"

	"github.com/advdv/bkoa"
)

// ctxKey type scopes middlware values.
type ctxKey string

// Middleware provides an example for middleware that adds a logger to the context.
func Middleware(logs *slog.Logger) bkoa.Middleware {
	return func(c *bkoa.Context, next bkoa.Next) error {
		c.SetValue(ctxKey("slog"), logs.With(
			slog.String("method", c.Method()),
			slog.String("path", c.Path())))

		return next()
	}
}

func Log(ctx context.Context) *slog.Logger {
	v, _ := ctx.Value(ctxKey("slog")).(*slog.Logger)

	return v
}
