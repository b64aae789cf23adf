package bkoa

import (
	"context"
	"sync/atomic"
)

// scopeKey is unique per application so that nested applications don't see
// each other's context.
type scopeKey struct{ app *Application }

// scope holds the context of the request that is currently being handled. It
// is shared by every context.Context derived from the request.
type scope struct {
	cur atomic.Pointer[Context]
}

func (s *scope) enter(c *Context) { s.cur.Store(c) }

func (s *scope) leave() { s.cur.Store(nil) }

func (a *Application) withScope(ctx context.Context) (context.Context, *scope) {
	sc := &scope{}
	return context.WithValue(ctx, scopeKey{a}, sc), sc
}

// CurrentContext returns the context of the request that ctx belongs to. It
// returns nil when ctx was not derived from one of the application's requests,
// and once that request has completed.
func (a *Application) CurrentContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}

	sc, ok := ctx.Value(scopeKey{a}).(*scope)
	if !ok {
		return nil
	}

	return sc.cur.Load()
}
