// Package bserve provides a batteries-included server for bkoa applications.
//
// # Overview
//
// bserve handles the boilerplate of running a [bkoa.Application] in production:
// environment parsing, structured logging, OpenTelemetry tracing, Prometheus metrics, AWS SDK
// clients, rotating cookie signing keys and graceful shutdown. A complete server can be created
// in a single call:
//
//	bserve.NewApp[Env](func(app *bkoa.Application, items *Items) {
//	    app.Use(bkoa.Mount("/items", items.Get))
//	},
//	    bserve.WithAWSClient(func(cfg aws.Config) *s3.Client {
//	        return s3.NewFromConfig(cfg)
//	    }),
//	    bserve.WithFx(fx.Provide(NewItems)),
//	).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bserve.BaseEnvironment
//	    BucketName string `env:"BUCKET_NAME,required"`
//	}
//
// BaseEnvironment embeds [bkoa.Config], so the APP_* variables configure the application. It
// adds the following environment variables:
//
//	| Variable                   | Required | Default   | Description                                       |
//	|----------------------------|----------|-----------|---------------------------------------------------|
//	| BKOA_PORT                  | Yes      | -         | Port the HTTP server listens on                   |
//	| BKOA_SERVICE_NAME          | Yes      | -         | Service name for logging and tracing              |
//	| BKOA_READINESS_CHECK_PATH  | No       | /health   | Health check endpoint, never traced               |
//	| BKOA_METRICS_PATH          | No       | /metrics  | Prometheus metrics endpoint                       |
//	| BKOA_LOG_LEVEL             | No       | info      | Log level (debug, info, warn, error)              |
//	| BKOA_OTEL_EXPORTER         | No       | stdout    | Trace exporter: "stdout", "xrayudp" or "none"     |
//	| BKOA_ERROR_STATUS_CODES    | No       | 500-599   | Statuses that are logged and counted as errors    |
//	| BKOA_REQUEST_TIMEOUT       | No       | 30s       | Deadline of the context of each request           |
//	| AWS_REGION                 | No       | us-east-1 | Region of AWS clients                             |
//	| BKOA_PRIMARY_REGION        | No       | -         | Region of clients registered [ForPrimaryRegion]   |
//	| BKOA_KEYS_SECRET_ID        | No       | -         | Secrets Manager secret holding the signing keys   |
//	| BKOA_KEYS_SECRET_PATH      | No       | -         | gjson path of the keys inside the secret          |
//	| BKOA_KEYS_PARAMETER        | No       | -         | SSM parameter holding the signing keys            |
//	| BKOA_KEYS_REFRESH          | No       | 5m        | How often the signing keys are reloaded           |
//
// # Middleware Order
//
// [NewApplication] registers the middleware that runs before yours: the request logger, the
// health check, the metrics endpoint and the request timeout. The setup function passed to
// [NewApp] adds the rest. The middleware list is fixed once the server is created, so register
// everything from the setup function.
//
// # Logging
//
// [Log] returns the request logger with trace correlation:
//
//	func (h *Items) Get(c *bkoa.Context, next bkoa.Next) error {
//	    bserve.Log(c).Info("getting item", zap.String("path", c.Path()))
//	    // ...
//	}
//
// Every finished response is written to the access log, at error level when its status matches
// BKOA_ERROR_STATUS_CODES. Unhandled errors are reported by the application through [NewZapLogger].
//
// # Signing Keys
//
// When BKOA_KEYS_SECRET_ID or BKOA_KEYS_PARAMETER is set, the signing keys are loaded before the
// server starts and replaced every BKOA_KEYS_REFRESH through [bkoa.Application.SetKeys]. Cookies
// signed with an older key that is still in the list are re-signed with the new primary key.
package bserve
