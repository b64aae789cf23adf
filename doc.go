// Package bkoa provides a small HTTP middleware framework with onion ordering and response finalization.
//
// # Overview
//
// An [Application] holds an ordered list of [Middleware]. For every request it creates a [Context] that wraps the
// request and the response, runs the middleware over it and, once the chain completes, writes the body that the
// middleware left on the context. Errors returned anywhere in the chain end up in one place: [Context.OnError]
// turns them into an error response and tells the application's error observers about them.
//
// A minimal example:
//
//	app := bkoa.New()
//	app.Use(func(c *bkoa.Context, next bkoa.Next) error {
//	    start := time.Now()
//	    err := next()
//	    c.Set("X-Response-Time", time.Since(start).String())
//	    return err
//	})
//	app.Use(func(c *bkoa.Context, next bkoa.Next) error {
//	    c.SetBody("Hello World")
//	    return nil
//	})
//
//	http.ListenAndServe(":3000", app.Callback())
//
// # Middleware
//
// Middleware receives the context and a [Next] function that runs the rest of the chain. Code before next runs
// on the way in, code after it runs on the way out, once everything downstream has returned:
//
//	func(c *bkoa.Context, next bkoa.Next) error {
//	    // 1: before downstream
//	    err := next()
//	    // 3: after downstream
//	    return err
//	}
//
// Calling next twice from the same middleware is a programming error and returns [ErrNextCalledTwice]. A panic in
// any middleware is recovered and returned up the chain as an error. [Compose] combines middleware into one, and
// [Mount] runs middleware under a path prefix only.
//
// Other shapes, standard library handlers and middleware included, are converted with [Adapt]:
//
//	app.Use(bkoa.MustAdapt(promhttp.Handler()))
//
// # Bodies and Status
//
// The body is set with [Context.SetBody] and only written when the chain completes. Setting it adjusts status and
// headers right away, so later middleware reads a consistent state:
//
//   - strings are sent as text/html when they start with "<", as text/plain otherwise
//   - []byte is sent as application/octet-stream
//   - an io.Reader is streamed, and closed when it is an io.Closer
//   - anything else is encoded as JSON
//   - nil means no content and changes the status to 204
//
// Setting a body implies status 200 unless a status was set explicitly. When nothing is set, the response is a
// 404 with the reason phrase as body. HEAD requests get the headers only, statuses like 204 and 304 never carry a
// body. Call [Context.SetRespond] with false to take over the response completely.
//
// # Error Handling
//
// Return an error to end the request. [Context.Throw] and [Context.Assert] build errors that carry a status:
//
//	if user == nil {
//	    return c.Throw(bkoa.ByStatus(401), bkoa.ByMessage("please log in"))
//	}
//
//	if err := c.Assert(c.Get("X-Token") != "", 400, "token required"); err != nil {
//	    return err
//	}
//
// Any error with a Status() or StatusCode() method sets the status of the error response, errors wrapping
// [fs.ErrNotExist] become a 404, everything else a 500. The error message is only sent to the client when the error
// is exposed, which [*Error] is by default for 4xx codes. Otherwise the client gets the reason phrase.
//
// Register observers with [Application.OnError]. Without one, errors are logged unless they are exposed or a 404.
// Errors that happen after the headers were sent are still reported, marked with [ErrHeaderSent].
//
// # Extending
//
// Each application has its own extension points for the per-request types: [Application.Context],
// [Application.Request] and [Application.Response]. Values defined on them show up on every instance, hooks run for
// every instance that is created:
//
//	app.Context.Define("version", "v1.2.3")
//	app.Request.OnCreate(func(r *bkoa.Request) { r.SetExt("start", time.Now()) })
//
//	v, _ := bkoa.ExtOf[string](c, "version")
//
// # Request Scope
//
// [Application.CurrentContext] returns the [Context] of the request that a context.Context belongs to. It works from
// any context derived from the request, also in goroutines, and returns nil once the request has completed.
package bkoa
