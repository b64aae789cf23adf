package bserve

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// Region selects the AWS region a client is configured for.
type Region func(env Environment) string

// LocalRegion targets AWS_REGION.
func LocalRegion() Region { return Environment.awsRegion }

// PrimaryRegion targets BKOA_PRIMARY_REGION, or AWS_REGION when it is not set.
func PrimaryRegion() Region { return Environment.primaryRegion }

// FixedRegion targets a specific region.
func FixedRegion(region string) Region {
	return func(Environment) string { return region }
}

type clientOptions struct {
	region Region
}

// ClientOption configures AWS client registration.
type ClientOption func(*clientOptions)

// ForPrimaryRegion configures the client for the primary deployment region.
func ForPrimaryRegion() ClientOption {
	return func(o *clientOptions) { o.region = PrimaryRegion() }
}

// ForRegion configures the client for a fixed region.
func ForRegion(region string) ClientOption {
	return func(o *clientOptions) { o.region = FixedRegion(region) }
}

const awsConfigTimeout = 10 * time.Second

// NewAWSConfig loads the default AWS SDK v2 configuration.
func NewAWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, errors.Wrap(err, "load aws config")
	}

	return cfg, nil
}

// provideAWSConfig loads the AWS config with a timeout and instruments it for tracing.
func provideAWSConfig(tp trace.TracerProvider, prop propagation.TextMapPropagator) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), awsConfigTimeout)
	defer cancel()

	cfg, err := NewAWSConfig(ctx)
	if err != nil {
		return cfg, err
	}

	otelaws.AppendMiddlewares(&cfg.APIOptions,
		otelaws.WithTracerProvider(tp),
		otelaws.WithTextMapPropagator(prop),
	)

	return cfg, nil
}

// AWSClientProvider creates an fx.Option that provides an AWS client for injection.
// The factory receives a copy of the aws.Config with the region already configured:
//
//	bserve.AWSClientProvider(func(cfg aws.Config) *s3.Client {
//	    return s3.NewFromConfig(cfg)
//	})
func AWSClientProvider[T any](factory func(aws.Config) T, opts ...ClientOption) fx.Option {
	options := &clientOptions{region: LocalRegion()}
	for _, opt := range opts {
		opt(options)
	}

	return fx.Provide(func(cfg aws.Config, env Environment) T {
		awsCfg := cfg.Copy()
		if r := options.region(env); r != "" {
			awsCfg.Region = r
		}

		return factory(awsCfg)
	})
}
