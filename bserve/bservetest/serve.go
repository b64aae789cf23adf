package bservetest

import (
	"net/http"
	"net/http/httptest"

	"github.com/advdv/bkoa"
)

// Serve runs req through the middleware of app and returns the recorded response.
func Serve(app *bkoa.Application, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Callback().ServeHTTP(rec, req)

	return rec
}

// ServeMiddleware runs req through a new application with only mw and returns the recorded response.
func ServeMiddleware(req *http.Request, mw ...bkoa.Middleware) *httptest.ResponseRecorder {
	app := bkoa.New(bkoa.WithSilent(true))
	for _, m := range mw {
		app.Use(m)
	}

	return Serve(app, req)
}
