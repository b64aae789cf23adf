package bserve

import (
	"net/http"

	"github.com/carlmjohnson/requests"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// NewHTTPTransport creates a RoundTripper that traces outbound requests. Client spans are named
// after the method and host. Requests for any of the excluded paths, such as health checks of
// other services, are sent without a span.
func NewHTTPTransport(
	tp trace.TracerProvider, prop propagation.TextMapPropagator, excludePaths ...string,
) http.RoundTripper {
	excluded := make(map[string]struct{}, len(excludePaths))
	for _, p := range excludePaths {
		excluded[p] = struct{}{}
	}

	return otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(prop),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Host
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			_, skip := excluded[r.URL.Path]
			return !skip
		}),
	)
}

// NewHTTPClient creates an *http.Client that uses the given transport.
func NewHTTPClient(t http.RoundTripper) *http.Client {
	return &http.Client{Transport: t}
}

// newRequestBuilder identifies the service in the User-Agent of every request it builds.
func newRequestBuilder(t http.RoundTripper, serviceName string) *requests.Builder {
	rb := requests.New().Transport(t)
	if serviceName != "" {
		rb = rb.UserAgent(serviceName)
	}

	return rb
}
