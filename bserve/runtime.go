package bserve

import (
	"context"
	"net/http"

	"github.com/advdv/bkoa"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into middleware constructors via fx instead of pulling from context.
//
// Example:
//
//	func NewItems(rt *bserve.Runtime[Env], objects *s3.Client) *Items {
//	    return &Items{rt: rt, objects: objects}
//	}
//
//	func (h *Items) Get(c *bkoa.Context, next bkoa.Next) error {
//	    bucket := h.rt.Env().BucketName
//	    // ...
//	}
type Runtime[E Environment] struct {
	env          E
	app          *bkoa.Application
	secretReader SecretReader
	transport    http.RoundTripper
}

// RuntimeParams holds optional dependencies for Runtime.
type RuntimeParams struct {
	SecretReader SecretReader
	Transport    http.RoundTripper
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, app *bkoa.Application, params RuntimeParams) *Runtime[E] {
	transport := params.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Runtime[E]{
		env:          env,
		app:          app,
		secretReader: params.SecretReader,
		transport:    transport,
	}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// App returns the application that serves the requests.
func (r *Runtime[E]) App() *bkoa.Application {
	return r.app
}

// NewRequest returns a request builder that traces outbound calls and sends the service name as
// User-Agent.
func (r *Runtime[E]) NewRequest() *requests.Builder {
	return newRequestBuilder(r.transport, r.env.serviceName())
}

// Secret retrieves a secret value from AWS Secrets Manager.
//
// If jsonPath is provided, the secret is parsed as JSON and the path is extracted
// using gjson syntax (e.g., "database.password", "api.keys.0").
// If jsonPath is omitted, the raw secret string is returned.
func (r *Runtime[E]) Secret(ctx context.Context, secretID string, jsonPath ...string) (string, error) {
	if r.secretReader == nil {
		return "", errors.New("bserve: secret reader not configured")
	}

	return secretFromReader(ctx, r.secretReader, secretID, jsonPath...)
}

func secretFromReader(ctx context.Context, reader SecretReader, secretID string, jsonPath ...string) (string, error) {
	if len(jsonPath) > 1 {
		return "", errors.New("bserve: Secret accepts at most one jsonPath argument")
	}

	secret, err := reader.GetSecretString(ctx, secretID)
	if err != nil {
		return "", err
	}

	if len(jsonPath) == 0 || jsonPath[0] == "" {
		return secret, nil
	}

	result := gjson.Get(secret, jsonPath[0])
	if !result.Exists() {
		return "", errors.Newf("secret path %q not found in secret %q", jsonPath[0], secretID)
	}

	return result.String(), nil
}
