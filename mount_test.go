package bkoa_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bkoa"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func pathBody() bkoa.Middleware {
	return func(c *bkoa.Context, _ bkoa.Next) error {
		mount, _ := bkoa.ExtOf[string](c, bkoa.MountPathExt)
		c.SetBody(fmt.Sprintf("path:%s,mount:%s", c.Path(), mount))
		return nil
	}
}

func TestMountPaths(t *testing.T) {
	for _, tt := range []struct {
		prefix  string
		target  string
		expCode int
		expBody string
	}{
		{"/api", "/api/users", 200, "path:/users,mount:/api"},
		{"/api", "/api", 200, "path:/,mount:/api"},
		{"/api", "/api/", 200, "path:/,mount:/api"},
		{"/api", "/api/v1/users/123", 200, "path:/v1/users/123,mount:/api"},
		{"/api", "/apis", 404, "Not Found"},
		{"/api", "/other", 404, "Not Found"},
		{"/api/", "/api/users", 200, "path:users,mount:/api/"},
		{"/", "/anything", 200, "path:/anything,mount:"},
	} {
		t.Run(tt.prefix+" "+tt.target, func(t *testing.T) {
			app := bkoa.New()
			app.Use(bkoa.Mount(tt.prefix, pathBody()))

			rec := serve(app, httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.Equal(t, tt.expCode, rec.Code)
			require.Equal(t, tt.expBody, rec.Body.String())
		})
	}
}

func TestMountRestoresPath(t *testing.T) {
	var seen []string
	app := bkoa.New()
	app.Use(func(c *bkoa.Context, next bkoa.Next) error {
		err := next()
		seen = append(seen, "after:"+c.Path())
		return err
	})
	app.Use(bkoa.Mount("/api", func(c *bkoa.Context, next bkoa.Next) error {
		seen = append(seen, "mounted:"+c.Path())
		err := next()
		seen = append(seen, "mounted after:"+c.Path())
		return err
	}))
	app.Use(func(c *bkoa.Context, _ bkoa.Next) error {
		_, mounted := c.Ext(bkoa.MountPathExt)
		seen = append(seen, fmt.Sprintf("downstream:%s,%v", c.Path(), mounted))
		return nil
	})

	serve(app, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.Equal(t, []string{
		"mounted:/users",
		"downstream:/api/users,false",
		"mounted after:/users",
		"after:/api/users",
	}, seen)
}

func TestMountNested(t *testing.T) {
	app := bkoa.New()
	app.Use(bkoa.Mount("/api", bkoa.Mount("/v1", pathBody())))

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))
	require.Equal(t, "path:/items,mount:/v1", rec.Body.String())
}

func TestMountError(t *testing.T) {
	app := bkoa.New(bkoa.WithLogger(bkoa.NewTestLogger(t)))
	app.Use(bkoa.Mount("/api", func(*bkoa.Context, bkoa.Next) error {
		return errors.New("mount error")
	}))

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/api/fail", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error", rec.Body.String())
}

func TestMountStdHandler(t *testing.T) {
	app := bkoa.New()
	app.Use(bkoa.Mount("/static", bkoa.MustAdapt(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "std:%s", r.URL.Path)
	}))))

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "std:/style.css", rec.Body.String())
}

func TestMountInvalidPrefix(t *testing.T) {
	require.Panics(t, func() { bkoa.Mount("api") })
}
