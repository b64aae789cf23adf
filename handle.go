package bkoa

import (
	"net/http"
	"reflect"
	"runtime"

	"github.com/cockroachdb/errors"
)

// Adapt converts v into middleware. It accepts:
//
//   - [Middleware] or a func(*Context, Next) error
//   - a func(*Context) error, which ends the chain
//   - an [http.Handler] or func(http.ResponseWriter, *http.Request), which takes over the response entirely
//   - a func(http.Handler) http.Handler, the standard middleware shape. The handler it wraps continues the chain.
//
// Iterator shaped functions are rejected, they are not middleware.
//
// The Callback of another application can be adapted like any handler. Both applications then share one response
// writer, and the response events of both fire once the outer request finishes.
func Adapt(v any) (Middleware, error) {
	if v == nil {
		return nil, errors.WithStack(ErrInvalidMiddleware)
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func && rv.IsNil() {
		return nil, errors.WithStack(ErrInvalidMiddleware)
	}

	switch m := v.(type) {
	case Middleware:
		return m, nil
	case func(*Context, Next) error:
		return m, nil
	case func(*Context) error:
		return func(c *Context, _ Next) error { return m(c) }, nil
	case func(http.Handler) http.Handler:
		return fromStdMiddleware(m), nil
	case http.Handler:
		return fromHandler(m), nil
	case func(http.ResponseWriter, *http.Request):
		return fromHandler(http.HandlerFunc(m)), nil
	}

	if isIterator(reflect.TypeOf(v)) {
		return nil, errors.Wrapf(ErrInvalidMiddleware,
			"support for iterator middleware was removed, convert %s to func(*bkoa.Context, bkoa.Next) error",
			funcName(v))
	}

	return nil, errors.Wrapf(ErrInvalidMiddleware, "unsupported type %T", v)
}

// MustAdapt is like [Adapt] but panics on error.
func MustAdapt(v any) Middleware {
	mw, err := Adapt(v)
	if err != nil {
		panic(err)
	}

	return mw
}

// fromHandler runs h as the end of the chain. The handler owns the response, the body set on the context is
// ignored.
func fromHandler(h http.Handler) Middleware {
	return func(c *Context, _ Next) error {
		c.SetRespond(false)
		c.res.SetStatusCode(http.StatusOK)
		h.ServeHTTP(c.res, c.req)
		return nil
	}
}

// fromStdMiddleware runs mw around the rest of the chain. Changes mw makes to the request are visible downstream.
// When mw answers without calling its handler, it owns the response.
func fromStdMiddleware(mw func(http.Handler) http.Handler) Middleware {
	return func(c *Context, next Next) error {
		prevCtx, prevReq := c.Context, c.req

		var called bool
		var err error
		h := mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			if r != c.req {
				c.Context, c.req = r.Context(), r
			}

			err = next()
		}))

		h.ServeHTTP(c.res, c.req)
		c.Context, c.req = prevCtx, prevReq

		if !called {
			c.SetRespond(false)
		}

		return err
	}
}

// isIterator reports whether t has the shape of an iterator: a function that
// only takes a yield function returning bool.
func isIterator(t reflect.Type) bool {
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		return false
	}

	yield := t.In(0)
	return yield.Kind() == reflect.Func && yield.NumOut() == 1 && yield.Out(0).Kind() == reflect.Bool
}

func funcName(v any) string {
	if fn := runtime.FuncForPC(reflect.ValueOf(v).Pointer()); fn != nil {
		return fn.Name()
	}

	return "the middleware"
}
