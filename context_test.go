package bkoa_test

import (
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advdv/bkoa"
	"github.com/advdv/bkoa/cookies"
	"github.com/advdv/bkoa/internal/example"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKey struct{}

type conflictError struct{}

func (conflictError) Error() string   { return "conflict" }
func (conflictError) StatusCode() int { return http.StatusConflict }

func TestThrow(t *testing.T) {
	c, _ := newTestContext(t, bkoa.New(), nil)

	for _, tt := range []struct {
		name      string
		args      []bkoa.ErrorArg
		expStatus int
		expMsg    string
		expExpose bool
	}{
		{"message only", []bkoa.ErrorArg{bkoa.ByMessage("boom")}, 500, "boom", false},
		{"status only", []bkoa.ErrorArg{bkoa.ByStatus(400)}, 400, "Bad Request", true},
		{"status and message", []bkoa.ErrorArg{bkoa.ByStatus(401), bkoa.ByMessage("log in")}, 401, "log in", true},
		{"message and status", []bkoa.ErrorArg{bkoa.ByMessage("gone"), bkoa.ByStatus(410)}, 410, "gone", true},
		{"error then status", []bkoa.ErrorArg{bkoa.ByError(errors.New("oops")), bkoa.ByStatus(422)}, 422, "oops", true},
		{"status then plain error", []bkoa.ErrorArg{bkoa.ByStatus(422), bkoa.ByError(errors.New("oops"))}, 422, "oops",
			true},
		{"error status wins", []bkoa.ErrorArg{bkoa.ByStatus(400), bkoa.ByError(conflictError{})}, 409, "conflict", true},
		{"unknown status", []bkoa.ErrorArg{bkoa.ByStatus(299)}, 500, "Internal Server Error", false},
		{"custom 4xx status", []bkoa.ErrorArg{bkoa.ByStatus(499)}, 499, "", true},
		{"expose prop", []bkoa.ErrorArg{bkoa.ByStatus(401), bkoa.WithProps(map[string]any{"expose": false})}, 401,
			"Unauthorized", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Throw(tt.args...)

			var httpErr *bkoa.Error
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.expStatus, httpErr.Status())
			assert.Equal(t, tt.expMsg, httpErr.Message())
			assert.Equal(t, tt.expExpose, httpErr.Expose())
		})
	}
}

func TestThrowProps(t *testing.T) {
	c, _ := newTestContext(t, bkoa.New(), nil)
	err := c.Throw(bkoa.ByStatus(400), bkoa.WithProps(map[string]any{
		"foo":     "bar",
		"status":  500,
		"headers": map[string]string{"X-Why": "because"},
	}))

	var httpErr *bkoa.Error
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 400, httpErr.Status())
	require.Equal(t, "because", httpErr.Headers().Get("X-Why"))

	foo, ok := httpErr.Prop("foo")
	require.True(t, ok)
	require.Equal(t, "bar", foo)

	_, ok = httpErr.Prop("status")
	require.False(t, ok)
}

func TestAssert(t *testing.T) {
	c, _ := newTestContext(t, bkoa.New(), nil)
	require.NoError(t, c.Assert(true, 400, "never"))

	err := c.Assert(false, 0, "")
	require.Equal(t, 500, bkoa.StatusOf(err))
	require.False(t, bkoa.ExposeOf(err))

	err = c.Assert(false, 401, "please log in", bkoa.WithHeaders(http.Header{"Www-Authenticate": {"Basic"}}))
	require.Equal(t, 401, bkoa.StatusOf(err))
	require.EqualError(t, err, "Unauthorized: please log in")
	require.Equal(t, "Basic", bkoa.HeadersOf(err).Get("WWW-Authenticate"))
}

func TestOnError(t *testing.T) {
	for _, tt := range []struct {
		name       string
		err        error
		expCode    int
		expBody    string
		expHeaders http.Header
	}{
		{
			name: "exposed", err: bkoa.NewHTTPError(bkoa.ByStatus(403), bkoa.ByMessage("nope"),
				bkoa.WithHeaders(http.Header{"X-Why": {"because"}})),
			expCode: 403, expBody: "nope", expHeaders: http.Header{"X-Why": {"because"}},
		},
		{
			name:    "unexposed",
			err:     bkoa.NewError(bkoa.CodeInternalServerError, errors.New("secret")),
			expCode: 500, expBody: "Internal Server Error",
		},
		{
			name:    "plain",
			err:     errors.New("secret"),
			expCode: 500, expBody: "Internal Server Error",
		},
		{
			name:    "wrapped http error",
			err:     errors.Wrap(bkoa.NewError(bkoa.CodeTeapot, errors.New("short and stout")), "brew"),
			expCode: 418, expBody: "short and stout",
		},
		{
			name:    "not exist",
			err:     errors.Wrap(fs.ErrNotExist, "open file"),
			expCode: 404, expBody: "Not Found",
		},
		{
			name:    "status code method",
			err:     conflictError{},
			expCode: 409, expBody: "Conflict",
		},
		{
			name: "invalid error headers are skipped",
			err: bkoa.NewHTTPError(bkoa.ByStatus(400), bkoa.WithHeaders(http.Header{
				"Bad Name": {"x"}, "X-Bad": {"a\nb"}, "X-Good": {"ok"},
			})),
			expCode: 400, expBody: "Bad Request", expHeaders: http.Header{"X-Good": {"ok"}},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			app := bkoa.New(bkoa.WithLogger(bkoa.NewTestLogger(t)))
			app.Use(func(c *bkoa.Context, _ bkoa.Next) error {
				c.Set("X-Before", "1")
				c.SetBody("replaced")
				return tt.err
			})

			rec := serve(app, nil)
			require.Equal(t, tt.expCode, rec.Code)
			require.Equal(t, tt.expBody, rec.Body.String())
			require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			require.Empty(t, rec.Header().Get("X-Before"))

			for k := range tt.expHeaders {
				require.Equal(t, tt.expHeaders.Get(k), rec.Header().Get(k))
			}
		})
	}
}

func TestOnErrorNil(t *testing.T) {
	c, rec := newTestContext(t, bkoa.New(), nil)
	c.OnError(nil)
	require.False(t, c.HeaderSent())
	require.Empty(t, rec.Body.String())
}

func TestOnErrorAfterHeadersSent(t *testing.T) {
	var observed error
	app := bkoa.New()
	app.OnError(func(err error, _ *bkoa.Context) { observed = err })
	app.Use(func(c *bkoa.Context, _ bkoa.Next) error {
		c.SetStatus(http.StatusOK)
		if err := c.FlushHeaders(); err != nil {
			return err
		}
		return errors.New("too late")
	})

	rec := serve(app, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
	require.True(t, bkoa.HeaderSent(observed))
	require.ErrorContains(t, observed, "too late")
}

func TestCookies(t *testing.T) {
	app := bkoa.New(bkoa.WithKeys("secret"))
	app.Use(func(c *bkoa.Context, _ bkoa.Next) error {
		if name, ok := c.Cookies().Get("name", cookies.Signed(true)); ok {
			c.SetBody("hello " + name)
			return nil
		}

		return c.Cookies().Set("name", "tobi")
	})

	rec := serve(app, nil)
	setCookies := rec.Result().Cookies()
	require.Len(t, setCookies, 2)
	require.Equal(t, "name", setCookies[0].Name)
	require.Equal(t, "name.sig", setCookies[1].Name)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range setCookies {
		r.AddCookie(ck)
	}

	rec = serve(app, r)
	require.Equal(t, "hello tobi", rec.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "name", Value: "mallory"})
	r.AddCookie(&http.Cookie{Name: "name.sig", Value: setCookies[1].Value})

	rec = serve(app, r)
	require.NotEqual(t, "hello mallory", rec.Body.String())
}

func TestCookiesInsecure(t *testing.T) {
	c, _ := newTestContext(t, bkoa.New(), nil)
	err := c.Cookies().Set("name", "tobi", cookies.Secure(true))
	require.ErrorIs(t, err, cookies.ErrInsecure)

	c, _ = newTestContext(t, bkoa.New(), httptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	require.NoError(t, c.Cookies().Set("name", "tobi", cookies.Secure(true)))
	require.Contains(t, c.Response().Get("Set-Cookie"), "Secure")
}

func TestSetValue(t *testing.T) {
	logs := slog.New(slog.DiscardHandler)

	app := bkoa.New()
	app.Use(example.Middleware(logs))
	app.Use(func(c *bkoa.Context, _ bkoa.Next) error {
		if example.Log(c) == nil || example.Log(c.Req().Context()) == nil {
			return errors.New("no logger")
		}

		c.SetBody("ok")
		return nil
	})

	rec := serve(app, nil)
	require.Equal(t, "ok", rec.Body.String())
}

func TestSetContextKeepsScope(t *testing.T) {
	app := bkoa.New()
	app.Use(func(c *bkoa.Context, _ bkoa.Next) error {
		c.SetValue(testKey{}, "v")
		if app.CurrentContext(c.Req().Context()) != c {
			return errors.New("lost scope")
		}

		c.SetBody(strings.ToUpper(c.Value(testKey{}).(string)))
		return nil
	})

	require.Equal(t, "V", serve(app, nil).Body.String())
}
