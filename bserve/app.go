package bserve

import (
	"context"
	"net/http"

	"github.com/advdv/bkoa"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// App wraps an fx.App for lifecycle management.
type App struct {
	app *fx.App
}

// AppConfig holds configuration for the app.
type AppConfig struct {
	ServerConfig
	FxOptions []fx.Option
}

// Option configures the App.
type Option func(*AppConfig)

type runtimeParams[E Environment] struct {
	fx.In

	Env          E
	App          *bkoa.Application
	SecretReader SecretReader
	Transport    http.RoundTripper
}

// WithAWSClient registers an AWS SDK v2 client for dependency injection. By default the client
// targets AWS_REGION:
//
//	bserve.WithAWSClient(func(cfg aws.Config) *s3.Client {
//	    return s3.NewFromConfig(cfg)
//	})
func WithAWSClient[T any](factory func(aws.Config) T, opts ...ClientOption) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, AWSClientProvider(factory, opts...))
	}
}

// WithFx adds fx options for dependency injection.
func WithFx(fxOpts ...fx.Option) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, fxOpts...)
	}
}

// WithHealthHandler sets a custom health check handler.
// If not set, a default handler returning 200 OK is used.
func WithHealthHandler(h http.HandlerFunc) Option {
	return func(c *AppConfig) {
		c.HealthHandler = h
	}
}

// FxOptions returns the options that make up the dependency graph of [NewApp].
//
// The setup function is invoked before the server is created, it can request any types that are
// provided via fx options and should register the middleware on *bkoa.Application.
func FxOptions[E Environment](setup any, opts ...Option) []fx.Option {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return append([]fx.Option{
		fx.Provide(ParseEnv[E]()),
		fx.Provide(func(e E) Environment { return e }),
		fx.Provide(func(e E) (*zap.Logger, error) { return NewLogger(e) }),
		fx.Provide(NewErrorStatuses),
		fx.Provide(newRegistry),
		fx.Provide(func(reg *prometheus.Registry, s ErrorStatuses) (*Metrics, error) {
			return NewMetrics(reg, s)
		}),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Provide(provideAWSConfig),
		fx.Provide(func(cfg aws.Config) (SecretReader, error) {
			return NewAWSSecretReader(cfg)
		}),
		fx.Provide(NewKeySource),
		fx.Provide(func(tp trace.TracerProvider, prop propagation.TextMapPropagator, e E) http.RoundTripper {
			return NewHTTPTransport(tp, prop, e.readinessCheckPath())
		}),
		fx.Supply(cfg.ServerConfig),
		fx.Provide(NewApplication),
		fx.Provide(NewServer),
		fx.Provide(func(p runtimeParams[E]) *Runtime[E] {
			return NewRuntime(p.Env, p.App, RuntimeParams{SecretReader: p.SecretReader, Transport: p.Transport})
		}),
		fx.Invoke(startKeyRotation),
		fx.Invoke(setup),
		fx.Invoke(startServerHook),
	}, cfg.FxOptions...)
}

// NewApp creates a batteries-included app with dependency injection.
//
// Example:
//
//	bserve.NewApp[Env](func(app *bkoa.Application, items *Items) {
//	    app.Use(bkoa.Mount("/items", items.Get))
//	},
//	    bserve.WithAWSClient(func(cfg aws.Config) *s3.Client {
//	        return s3.NewFromConfig(cfg)
//	    }),
//	    bserve.WithFx(fx.Provide(NewItems)),
//	).Run()
func NewApp[E Environment](setup any, opts ...Option) *App {
	return &App{
		app: fx.New(append([]fx.Option{fx.NopLogger}, FxOptions[E](setup, opts...)...)...),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() {
	a.app.Run()
}

// Start starts the application and blocks until ctx is done, then stops it.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}
