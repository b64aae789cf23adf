// Package bservetest provides test helpers for bserve applications.
//
// It constructs the identical DI graph as [bserve.NewApp] but uses
// [fxtest.App] which fails the test immediately on DI errors.
//
// Example:
//
//	bservetest.SetBaseEnv(t, 18081)
//	app := bservetest.New[TestEnv](t, setup, bserve.WithAWSClient(...))
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bservetest

import (
	"testing"

	"github.com/advdv/bkoa/bserve"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// App embeds *fxtest.App for testing bserve applications.
type App struct {
	*fxtest.App
}

// New creates a test app with the same DI graph as [bserve.NewApp]. Values that the graph provides
// can be pulled out with fx.Populate passed through [bserve.WithFx].
func New[E bserve.Environment](t testing.TB, setup any, opts ...bserve.Option) *App {
	return &App{App: fxtest.New(t, bserve.FxOptions[E](setup, opts...)...)}
}

// Populate is shorthand for bserve.WithFx(fx.Populate(targets...)).
func Populate(targets ...any) bserve.Option {
	return bserve.WithFx(fx.Populate(targets...))
}
