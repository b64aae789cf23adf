package bserve

import (
	"time"

	"github.com/advdv/bkoa"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	startedAtExt    = "bserve.startedAt"
	startTrackerExt = "bserve.startTracker"
)

// trackStart records when each request of app started. It installs its hook only once per application.
func trackStart(app *bkoa.Application) {
	if _, ok := app.Context.Lookup(startTrackerExt); ok {
		return
	}

	app.Context.Define(startTrackerExt, true)
	app.Context.OnCreate(func(c *bkoa.Context) { c.SetExt(startedAtExt, time.Now()) })
}

// elapsed returns the time since the request of c started, or zero when it was not tracked.
func elapsed(c *bkoa.Context) time.Duration {
	start, ok := bkoa.ExtOf[time.Time](c, startedAtExt)
	if !ok {
		return 0
	}

	return time.Since(start)
}

// AccessLog logs every finished response of app. Responses with an error status are logged at error
// level, all others at info.
func AccessLog(app *bkoa.Application, logs *zap.Logger, statuses ErrorStatuses) {
	trackStart(app)

	logs = logs.Named("access")
	app.OnResponse(func(c *bkoa.Context) {
		status := c.Status()

		level := zapcore.InfoLevel
		if statuses.Matches(status) {
			level = zapcore.ErrorLevel
		}

		if ce := logs.Check(level, "request"); ce != nil {
			fields := append([]zap.Field{
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Int("status", status),
				zap.Duration("duration", elapsed(c)),
				zap.String("ip", c.IP()),
			}, traceFields(c)...)
			ce.Write(fields...)
		}
	})
}
