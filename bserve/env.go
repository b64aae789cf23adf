package bserve

import (
	"net/http"
	"time"

	intervals "github.com/MawKKe/integer-interval-expressions-go"
	"github.com/advdv/bkoa"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	appConfig() bkoa.Config
	port() int
	serviceName() string
	readinessCheckPath() string
	metricsPath() string
	logLevel() zapcore.Level
	otelExporter() string
	awsRegion() string
	primaryRegion() string
	errorStatusCodes() string
	requestTimeout() time.Duration
	keysSecretID() string
	keysSecretPath() string
	keysParameter() string
	keysRefresh() time.Duration
}

// BaseEnvironment contains the environment variables every server reads. The embedded [bkoa.Config]
// configures the application itself.
type BaseEnvironment struct {
	bkoa.Config

	Port               int           `env:"BKOA_PORT,required"`
	ServiceName        string        `env:"BKOA_SERVICE_NAME,required"`
	ReadinessCheckPath string        `env:"BKOA_READINESS_CHECK_PATH" envDefault:"/health"`
	MetricsPath        string        `env:"BKOA_METRICS_PATH"         envDefault:"/metrics"`
	LogLevel           zapcore.Level `env:"BKOA_LOG_LEVEL"            envDefault:"info"`
	OtelExporter       string        `env:"BKOA_OTEL_EXPORTER"        envDefault:"stdout"`
	AWSRegion          string        `env:"AWS_REGION"                envDefault:"us-east-1"`
	PrimaryRegion      string        `env:"BKOA_PRIMARY_REGION"`

	// ErrorStatusCodes is an interval expression such as "500-599" or "429,500-".
	// Responses with a matching status are logged and counted as errors.
	ErrorStatusCodes string        `env:"BKOA_ERROR_STATUS_CODES" envDefault:"500-599"`
	RequestTimeout   time.Duration `env:"BKOA_REQUEST_TIMEOUT"    envDefault:"30s"`

	// Signing keys are read from a Secrets Manager secret, or from an SSM parameter. When
	// neither is set the keys of the embedded config are used as-is.
	KeysSecretID   string        `env:"BKOA_KEYS_SECRET_ID"`
	KeysSecretPath string        `env:"BKOA_KEYS_SECRET_PATH"`
	KeysParameter  string        `env:"BKOA_KEYS_PARAMETER"`
	KeysRefresh    time.Duration `env:"BKOA_KEYS_REFRESH" envDefault:"5m"`
}

func (e BaseEnvironment) appConfig() bkoa.Config { return e.Config }
func (e BaseEnvironment) port() int { return e.Port }
func (e BaseEnvironment) serviceName() string { return e.ServiceName }
func (e BaseEnvironment) readinessCheckPath() string { return e.ReadinessCheckPath }
func (e BaseEnvironment) metricsPath() string { return e.MetricsPath }
func (e BaseEnvironment) logLevel() zapcore.Level { return e.LogLevel }
func (e BaseEnvironment) otelExporter() string { return e.OtelExporter }
func (e BaseEnvironment) awsRegion() string { return e.AWSRegion }
func (e BaseEnvironment) errorStatusCodes() string { return e.ErrorStatusCodes }
func (e BaseEnvironment) requestTimeout() time.Duration { return e.RequestTimeout }
func (e BaseEnvironment) keysSecretID() string { return e.KeysSecretID }
func (e BaseEnvironment) keysSecretPath() string { return e.KeysSecretPath }
func (e BaseEnvironment) keysParameter() string { return e.KeysParameter }
func (e BaseEnvironment) keysRefresh() time.Duration { return e.KeysRefresh }

func (e BaseEnvironment) primaryRegion() string {
	if e.PrimaryRegion == "" {
		return e.AWSRegion
	}

	return e.PrimaryRegion
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		return e, nil
	}
}

// ErrorStatuses classifies response statuses as errors.
type ErrorStatuses struct {
	expr intervals.Expression
}

// NewErrorStatuses parses the error status expression of the environment. The expression
// must cover 500 so that unhandled errors are always reported.
func NewErrorStatuses(env Environment) (ErrorStatuses, error) {
	return ParseErrorStatuses(env.errorStatusCodes(), http.StatusInternalServerError)
}

// ParseErrorStatuses parses expr and checks that it covers all required codes.
func ParseErrorStatuses(expr string, required ...int) (ErrorStatuses, error) {
	parsed, err := intervals.ParseExpression(expr)
	if err != nil {
		return ErrorStatuses{}, errors.Wrapf(err, "failed to parse error status codes %q", expr)
	}

	var missing []int
	for _, code := range required {
		if !parsed.Matches(code) {
			missing = append(missing, code)
		}
	}

	if len(missing) > 0 {
		return ErrorStatuses{}, errors.Newf(
			"error status codes %q must include %v (missing: %v), recommended value: %q",
			expr, required, missing, "500-599")
	}

	return ErrorStatuses{expr: parsed}, nil
}

// ValidateErrorStatusCodes reports whether expr parses and covers all required codes.
func ValidateErrorStatusCodes(expr string, required ...int) error {
	_, err := ParseErrorStatuses(expr, required...)

	return err
}

// Matches reports whether status counts as an error.
func (s ErrorStatuses) Matches(status int) bool {
	return s.expr.Matches(status)
}

// String returns the normalized expression.
func (s ErrorStatuses) String() string {
	return s.expr.Normalize().String()
}
