package bkoa

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/cockroachdb/errors"
)

// Next runs the rest of the middleware chain and returns its error.
type Next func() error

// Middleware handles a request. Code before the call to next runs on the way in, code after it runs once the rest
// of the chain has returned.
type Middleware func(c *Context, next Next) error

// Compose combines middleware into one. The first middleware is the outer most layer: it runs first and finishes
// last. When the last middleware calls next, the next that was passed to the composed middleware runs. Calling next
// twice from the same layer returns [ErrNextCalledTwice] and does not run the rest of the chain again. Panics in any
// layer are recovered and returned as errors, except for [http.ErrAbortHandler].
func Compose(mw ...Middleware) Middleware {
	for i, m := range mw {
		if m == nil {
			panic(errors.Wrapf(ErrInvalidMiddleware, "bkoa: middleware at index %d", i))
		}
	}

	mw = slices.Clone(mw)
	return func(c *Context, next Next) error {
		index := -1

		var dispatch func(i int) error
		dispatch = func(i int) error {
			if i <= index {
				return errors.WithStack(ErrNextCalledTwice)
			}

			index = i
			if i == len(mw) {
				if next == nil {
					return nil
				}

				return next()
			}

			return invoke(mw[i], c, func() error { return dispatch(i + 1) })
		}

		return dispatch(0)
	}
}

func invoke(m Middleware, c *Context, next Next) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = recovered(v)
		}
	}()

	return m(c, next)
}

// recovered turns a recovered panic value into an error.
func recovered(v any) error {
	if v == http.ErrAbortHandler { //nolint:errorlint // sentinel is panicked by value
		panic(v)
	}

	if err, ok := v.(error); ok {
		return errors.WithStack(err)
	}

	return nonError(v)
}

// nonError documents a value that was thrown where an error was expected.
func nonError(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		b = fmt.Appendf(nil, "%q", fmt.Sprint(v))
	}

	return errors.Newf("non-error thrown: %s", b)
}
