package bserve_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/advdv/bkoa"
	"github.com/advdv/bkoa/bserve"
	"github.com/advdv/bkoa/bserve/bservetest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/carlmjohnson/requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

type TestEnv struct {
	bserve.BaseEnvironment
	BucketName string `env:"BUCKET_NAME" envDefault:"test-bucket"`
}

type Greeter struct {
	rt      *bserve.Runtime[TestEnv]
	objects *s3.Client
}

func NewGreeter(rt *bserve.Runtime[TestEnv], objects *s3.Client) *Greeter {
	return &Greeter{rt: rt, objects: objects}
}

func (g *Greeter) Hello(c *bkoa.Context, _ bkoa.Next) error {
	bserve.Log(c).Info("greeting")
	c.SetBody(map[string]any{
		"hello":   c.Query().Get("name"),
		"bucket":  g.rt.Env().BucketName,
		"service": g.rt.Env().ServiceName,
		"s3":      g.objects != nil,
		"timeout": bserve.RequestRemainingTime(c) > 0,
	})

	return nil
}

func (g *Greeter) Fail(c *bkoa.Context, _ bkoa.Next) error {
	return c.Throw(bkoa.ByStatus(http.StatusForbidden), bkoa.ByMessage("not for you"))
}

func TestApp(t *testing.T) {
	bservetest.SetBaseEnv(t, 18091).ServiceName("greeter").ReadinessCheckPath("/ready").Keys("k1")

	var rt *bserve.Runtime[TestEnv]
	app := bservetest.New[TestEnv](t,
		func(app *bkoa.Application, g *Greeter) {
			app.Use(bkoa.Mount("/hello", g.Hello))
			app.Use(bkoa.Mount("/fail", g.Fail))
		},
		bserve.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
		bserve.WithFx(fx.Provide(NewGreeter)),
		bservetest.Populate(&rt),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	const base = "http://localhost:18091"
	ctx := t.Context()

	t.Run("hello", func(t *testing.T) {
		var resp struct {
			Hello   string `json:"hello"`
			Bucket  string `json:"bucket"`
			Service string `json:"service"`
			S3      bool   `json:"s3"`
			Timeout bool   `json:"timeout"`
		}

		require.NoError(t, requests.URL(base+"/hello").Param("name", "bob").ToJSON(&resp).Fetch(ctx))
		assert.Equal(t, "bob", resp.Hello)
		assert.Equal(t, "test-bucket", resp.Bucket)
		assert.Equal(t, "greeter", resp.Service)
		assert.True(t, resp.S3)
		assert.True(t, resp.Timeout)
	})

	t.Run("thrown error", func(t *testing.T) {
		var body string
		err := requests.URL(base + "/fail").
			CheckStatus(http.StatusForbidden).
			ToString(&body).
			Fetch(ctx)
		require.NoError(t, err)
		require.Equal(t, "not for you", body)
	})

	t.Run("not found", func(t *testing.T) {
		err := requests.URL(base + "/nope").Fetch(ctx)
		require.True(t, requests.HasStatusErr(err, http.StatusNotFound))
	})

	t.Run("health", func(t *testing.T) {
		require.NoError(t, requests.URL(base+"/ready").Fetch(ctx))
	})

	t.Run("metrics", func(t *testing.T) {
		var body string
		require.NoError(t, requests.URL(base+"/metrics").ToString(&body).Fetch(ctx))
		require.Contains(t, body, `bkoa_http_requests_total{error="false",method="GET",status="200"}`)
		require.Contains(t, body, "go_goroutines")
	})

	t.Run("runtime", func(t *testing.T) {
		require.NotNil(t, rt)
		require.Equal(t, []string{"k1"}, rt.App().Keys())

		var body string
		require.NoError(t, rt.NewRequest().BaseURL(base).Path("/hello").ToString(&body).Fetch(ctx))
		require.True(t, strings.HasPrefix(body, "{"))
	})
}

func TestAppCustomHealth(t *testing.T) {
	bservetest.SetBaseEnv(t, 18092)

	app := bservetest.New[bserve.BaseEnvironment](t,
		func(*bkoa.Application) {},
		bserve.WithHealthHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	err := requests.URL("http://localhost:18092/health").Fetch(t.Context())
	require.True(t, requests.HasStatusErr(err, http.StatusServiceUnavailable))
}
