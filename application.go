package bkoa

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/advdv/bkoa/cookies"
	"github.com/cockroachdb/errors"
)

// Application holds the middleware, the settings and the extension points. One application can serve any number
// of concurrent requests, each of which gets a fresh [Context].
type Application struct {
	// Context, Request and Response are the extension points for the per-request types.
	Context  *Proto[*Context]
	Request  *Proto[*Request]
	Response *Proto[*Response]

	mu              sync.RWMutex
	env             string
	proxy           bool
	subdomainOffset int
	proxyIPHeader   string
	maxIPsCount     int
	keys            []string
	keygrip         *cookies.Keygrip
	silent          bool
	logger          Logger
	middleware      []Middleware

	obsMu      sync.RWMutex
	onRequest  []func(*Context)
	onResponse []func(*Context)
	onError    []func(error, *Context)
}

// New creates an application.
func New(opts ...Option) *Application {
	a := &Application{
		Context:         newProto[*Context](),
		Request:         newProto[*Request](),
		Response:        newProto[*Response](),
		env:             "development",
		subdomainOffset: 2,
		proxyIPHeader:   "X-Forwarded-For",
		logger:          defaultLogger(),
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		a.env = env
	}

	for _, o := range opts {
		o(a)
	}

	return a
}

// Env returns the environment name, "development" unless configured.
func (a *Application) Env() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.env
}

// SetEnv changes the environment name.
func (a *Application) SetEnv(env string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.env = env
}

// Proxy reports whether proxy headers such as X-Forwarded-Host are trusted.
func (a *Application) Proxy() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.proxy
}

// SetProxy sets whether proxy headers are trusted.
func (a *Application) SetProxy(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxy = v
}

// SubdomainOffset is the number of host labels that Subdomains ignores, 2 by default.
func (a *Application) SubdomainOffset() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.subdomainOffset
}

// SetSubdomainOffset changes the number of ignored host labels.
func (a *Application) SetSubdomainOffset(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subdomainOffset = n
}

// ProxyIPHeader is the header the client address is read from when proxies are trusted.
func (a *Application) ProxyIPHeader() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.proxyIPHeader
}

// SetProxyIPHeader changes the client address header.
func (a *Application) SetProxyIPHeader(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyIPHeader = name
}

// MaxIPsCount limits how many entries of the proxy IP header are used. Zero means all.
func (a *Application) MaxIPsCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maxIPsCount
}

// SetMaxIPsCount changes the limit of proxy IP entries.
func (a *Application) SetMaxIPsCount(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxIPsCount = n
}

// Keys returns a copy of the signing keys.
func (a *Application) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.keys)
}

// SetKeys replaces the signing keys. It is safe to call while serving, requests
// that already use cookies keep the keys they started with.
func (a *Application) SetKeys(keys ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setKeys(keys)
}

func (a *Application) setKeys(keys []string) {
	a.keys = slices.Clone(keys)
	a.keygrip = nil
	if len(keys) > 0 {
		a.keygrip = cookies.NewKeygrip(keys...)
	}
}

// Keygrip returns the signer for the current keys, nil without keys.
func (a *Application) Keygrip() *cookies.Keygrip {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.keygrip
}

// Silent reports whether the default error observer stays quiet.
func (a *Application) Silent() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.silent
}

// SetSilent sets whether the default error observer stays quiet.
func (a *Application) SetSilent(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.silent = v
}

// Logger returns the logger for unhandled and transport errors.
func (a *Application) Logger() Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logger
}

// Use appends mw to the middleware chain.
func (a *Application) Use(mw Middleware) *Application {
	if mw == nil {
		panic(errors.Wrap(ErrInvalidMiddleware, "bkoa"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.middleware = append(a.middleware, mw)
	return a
}

// OnRequest registers fn to be called when a request starts, before any middleware runs.
func (a *Application) OnRequest(fn func(*Context)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.onRequest = append(a.onRequest, fn)
}

// OnResponse registers fn to be called once a response has finished.
func (a *Application) OnResponse(fn func(*Context)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.onResponse = append(a.onResponse, fn)
}

// OnError registers fn to be called for every error that is handled. When no observer is registered by the time
// [Application.Callback] is called, a default one is installed that logs errors that are neither exposed nor a 404.
func (a *Application) OnError(fn func(error, *Context)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.onError = append(a.onError, fn)
}

func (a *Application) emitRequest(c *Context) {
	a.obsMu.RLock()
	fns := a.onRequest
	a.obsMu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (a *Application) emitResponse(c *Context) {
	a.obsMu.RLock()
	fns := a.onResponse
	a.obsMu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (a *Application) emitError(err error, c *Context) {
	a.obsMu.RLock()
	fns := a.onError
	a.obsMu.RUnlock()

	if len(fns) == 0 {
		a.logError(err, c)
		return
	}

	for _, fn := range fns {
		fn(err, c)
	}
}

// logError is the default error observer.
func (a *Application) logError(err error, _ *Context) {
	if StatusOf(err) == http.StatusNotFound || ExposeOf(err) || a.Silent() {
		return
	}

	a.Logger().LogUnhandledError(err)
}

// Callback returns a handler that serves requests with the middleware that was registered up to now.
func (a *Application) Callback() http.Handler {
	a.mu.RLock()
	fn := Compose(a.middleware...)
	a.mu.RUnlock()

	a.obsMu.Lock()
	if len(a.onError) == 0 {
		a.onError = append(a.onError, a.logError)
	}
	a.obsMu.Unlock()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.handleRequest(w, r, fn)
	})
}

func (a *Application) handleRequest(w http.ResponseWriter, r *http.Request, fn Middleware) {
	ctx, sc := a.withScope(r.Context())
	c := a.CreateContext(r.WithContext(ctx), w)

	sc.enter(c)
	defer sc.leave()

	if f, ok := c.res.(finisher); ok && f.claim() {
		defer f.finish(nil)
	}

	c.res.SetStatusCode(http.StatusNotFound)
	c.res.OnFinished(func(err error) {
		if err != nil {
			c.OnError(err)
		}

		a.emitResponse(c)
	})

	a.emitRequest(c)
	if err := fn(c, nil); err != nil {
		c.OnError(err)
		return
	}

	respond(c)
}

// CreateContext builds the per-request context for r and w. It has no side effects on either of them.
func (a *Application) CreateContext(r *http.Request, w http.ResponseWriter) *Context {
	rw, ok := w.(ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w, r)
	}

	c := &Context{
		Context:     r.Context(),
		State:       map[string]any{},
		app:         a,
		req:         r,
		res:         rw,
		originalURL: r.RequestURI,
		respond:     true,
	}

	if c.originalURL == "" {
		c.originalURL = r.URL.RequestURI()
	}

	c.request = &Request{ctx: c}
	c.response = &Response{ctx: c}

	a.Request.create(c.request)
	a.Response.create(c.response)
	a.Context.create(c)
	return c
}

// Listen serves on addr until ctx is done, then shuts down gracefully.
func (a *Application) Listen(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Callback(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return errors.Wrap(err, "listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
	}
}

// MarshalJSON renders the settings of the application.
func (a *Application) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SubdomainOffset int    `json:"subdomainOffset"`
		Proxy           bool   `json:"proxy"`
		Env             string `json:"env"`
	}{a.SubdomainOffset(), a.Proxy(), a.Env()})
}
