package bserve

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/advdv/bkoa"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServerConfig holds optional configuration for the HTTP server.
type ServerConfig struct {
	HealthHandler http.HandlerFunc
}

// ApplicationParams holds the dependencies of the application.
type ApplicationParams struct {
	fx.In

	Env      Environment
	Logger   *zap.Logger
	Statuses ErrorStatuses
	Metrics  *Metrics
	Registry *prometheus.Registry
	Config   ServerConfig
}

// NewApplication creates the application with the middleware every server runs first: request
// logger, health check, metrics endpoint and request timeout. It also installs the access log
// and request metrics.
func NewApplication(params ApplicationParams) *bkoa.Application {
	app := bkoa.New(
		bkoa.WithConfig(params.Env.appConfig()),
		bkoa.WithLogger(NewZapLogger(params.Logger)))

	AccessLog(app, params.Logger, params.Statuses)
	params.Metrics.Instrument(app)

	health := params.Config.HealthHandler
	if health == nil {
		health = defaultHealthHandler
	}

	app.Use(withLogger(params.Logger))
	app.Use(Route(http.MethodGet, params.Env.readinessCheckPath(), health))
	app.Use(ServeMetrics(params.Env.metricsPath(), params.Registry))
	app.Use(WithRequestTimeout(params.Env.requestTimeout()))

	return app
}

// Route runs h for requests to exactly path, all other requests continue downstream. An empty
// method matches any method, GET also matches HEAD.
func Route(method, path string, h http.Handler) bkoa.Middleware {
	handle := bkoa.MustAdapt(h)

	return func(c *bkoa.Context, next bkoa.Next) error {
		if c.Path() != path || !methodMatches(method, c.Method()) {
			return next()
		}

		return handle(c, next)
	}
}

func methodMatches(want, got string) bool {
	switch {
	case want == "", want == got:
		return true
	case want == http.MethodGet:
		return got == http.MethodHead
	default:
		return false
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// newRegistry creates the registry for the metrics of the server, including Go runtime and process metrics.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env        Environment
	App        *bkoa.Application
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// NewServer creates an HTTP server for the application. The middleware of the application is
// fixed at this point.
func NewServer(params ServerParams) *http.Server {
	handler := WithTracing(
		params.TracerProv,
		params.Propagator,
		params.Env.serviceName(),
		params.Env.readinessCheckPath(),
	)(params.App.Callback())

	tc := TimeoutConfig{RequestTimeout: params.Env.requestTimeout()}
	readHeaderTimeout, readTimeout, writeTimeout, idleTimeout := tc.ServerTimeouts()

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", params.Env.port()),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          zap.NewStdLog(params.Logger.Named("server")),
	}
}

// startServerHook registers lifecycle hooks for the HTTP server. The listener is bound during start
// so an address that is in use fails the start.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", server.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", server.Addr)
			}

			logger.Info("starting server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}
