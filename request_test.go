package bkoa_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/advdv/bkoa"
	"github.com/stretchr/testify/require"
)

func TestIPs(t *testing.T) {
	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "127.0.0.1, 127.0.0.2")
		return r
	}

	c, _ := newTestContext(t, bkoa.New(), req())
	require.Equal(t, []string{}, c.IPs())
	require.Equal(t, "192.0.2.1", c.IP())

	c, _ = newTestContext(t, bkoa.New(bkoa.WithProxy(true)), req())
	require.Equal(t, []string{"127.0.0.1", "127.0.0.2"}, c.IPs())
	require.Equal(t, "127.0.0.1", c.IP())

	c.Req().Header.Set("X-Forwarded-For", "10.0.0.1")
	require.Equal(t, "127.0.0.1", c.IP())

	c.Request().SetIP("10.1.1.1")
	require.Equal(t, "10.1.1.1", c.IP())

	c, _ = newTestContext(t, bkoa.New(bkoa.WithProxy(true), bkoa.WithMaxIPsCount(1)), req())
	require.Equal(t, []string{"127.0.0.2"}, c.IPs())

	r := req()
	r.Header.Set("X-Real-IP", "10.9.9.9")
	c, _ = newTestContext(t, bkoa.New(bkoa.WithProxy(true), bkoa.WithProxyIPHeader("X-Real-IP")), r)
	require.Equal(t, "10.9.9.9", c.IP())
}

func TestHost(t *testing.T) {
	for _, tt := range []struct {
		name      string
		host      string
		forwarded string
		proxy     bool
		expHost   string
		expName   string
	}{
		{name: "with port", host: "example.com:3000", expHost: "example.com:3000", expName: "example.com"},
		{name: "ipv6", host: "[::1]:3000", expHost: "[::1]:3000", expName: "[::1]"},
		{name: "untrusted forward", host: "example.com", forwarded: "proxy.com", expHost: "example.com",
			expName: "example.com"},
		{name: "trusted forward", host: "example.com", forwarded: "proxy.com:8080, other.com", proxy: true,
			expHost: "proxy.com:8080", expName: "proxy.com"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-Host", tt.forwarded)
			}

			c, _ := newTestContext(t, bkoa.New(bkoa.WithProxy(tt.proxy)), r)
			require.Equal(t, tt.expHost, c.Host())
			require.Equal(t, tt.expName, c.Hostname())
		})
	}
}

func TestProtocol(t *testing.T) {
	c, _ := newTestContext(t, bkoa.New(), nil)
	require.Equal(t, "http", c.Protocol())
	require.False(t, c.Secure())

	c, _ = newTestContext(t, bkoa.New(), httptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	require.Equal(t, "https", c.Protocol())
	require.True(t, c.Secure())
	require.True(t, c.Socket().Encrypted)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https, http")
	c, _ = newTestContext(t, bkoa.New(), r)
	require.Equal(t, "http", c.Protocol())

	c, _ = newTestContext(t, bkoa.New(bkoa.WithProxy(true)), r)
	require.Equal(t, "https", c.Protocol())
	require.Equal(t, "https://example.com", c.Origin())
}

func TestSubdomains(t *testing.T) {
	for _, tt := range []struct {
		host   string
		offset int
		exp    []string
	}{
		{"tobi.ferrets.example.com", 2, []string{"ferrets", "tobi"}},
		{"tobi.ferrets.example.com", 3, []string{"tobi"}},
		{"example.com", 2, []string{}},
		{"127.0.0.1", 2, []string{}},
		{"[::1]", 2, []string{}},
	} {
		t.Run(tt.host, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host

			c, _ := newTestContext(t, bkoa.New(bkoa.WithSubdomainOffset(tt.offset)), r)
			require.Equal(t, tt.exp, c.Subdomains())
		})
	}
}

func TestURLAndQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users/1?a=1&b=2", nil)
	c, _ := newTestContext(t, bkoa.New(), r)

	require.Equal(t, "/users/1", c.Path())
	require.Equal(t, "a=1&b=2", c.Querystring())
	require.Equal(t, "?a=1&b=2", c.Search())
	require.Equal(t, "http://example.com/users/1?a=1&b=2", c.Href())

	q1, q2 := c.Query(), c.Query()
	require.Equal(t, "1", q1.Get("a"))
	require.Equal(t, reflect.ValueOf(q1).Pointer(), reflect.ValueOf(q2).Pointer())

	c.SetQuerystring("a=3")
	require.Equal(t, "3", c.Query().Get("a"))
	require.Equal(t, "/users/1?a=3", c.URL())

	c.SetPath("/login")
	require.Equal(t, "/login", c.Path())
	require.Equal(t, "a=3", c.Querystring())
	require.Equal(t, "/login?a=3", c.URL())

	c.SetSearch("?x=y")
	require.Equal(t, "x=y", c.Querystring())

	c.SetQuery(url.Values{"k": {"v"}})
	require.Equal(t, "/login?k=v", c.URL())

	c.SetURL("/other?z=1")
	require.Equal(t, "/other", c.Path())
	require.Equal(t, "1", c.Query().Get("z"))

	require.Equal(t, "/users/1?a=1&b=2", c.OriginalURL())
	require.Equal(t, "/users/1", r.URL.Path)
}

func TestMethod(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	c, _ := newTestContext(t, bkoa.New(), r)
	require.False(t, c.Idempotent())

	c.SetMethod(http.MethodPut)
	require.Equal(t, http.MethodPut, c.Method())
	require.True(t, c.Idempotent())
	require.Equal(t, http.MethodPost, r.Method)
}

func TestFresh(t *testing.T) {
	fresh := func(method string, status int, etag string) bool {
		r := httptest.NewRequest(method, "/", nil)
		r.Header.Set("If-None-Match", `"abc"`)

		c, _ := newTestContext(t, bkoa.New(), r)
		c.SetStatus(status)
		c.SetEtag(etag)
		return c.Fresh()
	}

	require.True(t, fresh(http.MethodGet, 200, "abc"))
	require.True(t, fresh(http.MethodHead, 304, "abc"))
	require.False(t, fresh(http.MethodGet, 200, "other"))
	require.False(t, fresh(http.MethodGet, 404, "abc"))
	require.False(t, fresh(http.MethodPost, 200, "abc"))

	c, _ := newTestContext(t, bkoa.New(), nil)
	require.True(t, c.Stale())
}

func TestRequestType(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	c, _ := newTestContext(t, bkoa.New(), r)

	require.True(t, c.Request().HasBody())
	require.Equal(t, "application/json", c.Request().Type())
	require.Equal(t, "utf-8", c.Request().Charset())

	n, ok := c.Request().Length()
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	typ, ok := c.Is("json")
	require.True(t, ok)
	require.Equal(t, "json", typ)

	typ, ok = c.Is("application/*")
	require.True(t, ok)
	require.Equal(t, "application/json", typ)

	_, ok = c.Is("html")
	require.False(t, ok)

	c, _ = newTestContext(t, bkoa.New(), nil)
	_, ok = c.Is("json")
	require.False(t, ok)
	require.Empty(t, c.Request().Charset())
}

func TestRequestGet(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Referer", "http://example.com/from")
	r.Header.Set("X-Foo", "bar")
	c, _ := newTestContext(t, bkoa.New(), r)

	require.Equal(t, "http://example.com/from", c.Get("Referrer"))
	require.Equal(t, "http://example.com/from", c.Get("referer"))
	require.Equal(t, "example.com", c.Get("Host"))
	require.Equal(t, "bar", c.Get("x-foo"))
	require.Empty(t, c.Get("X-Missing"))
}

func TestAccepts(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", "application/json, text/html;q=0.5")
	r.Header.Set("Accept-Language", "en;q=0.8, es")
	c, _ := newTestContext(t, bkoa.New(), r)

	typ, ok := c.Accepts("html", "json")
	require.True(t, ok)
	require.Equal(t, "json", typ)

	typ, _ = c.Accepts()
	require.Equal(t, "application/json", typ)

	lang, _ := c.AcceptsLanguages("en", "es")
	require.Equal(t, "es", lang)

	_, ok = c.Accepts("png")
	require.False(t, ok)
}

func TestSetHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Old", "1")
	c, _ := newTestContext(t, bkoa.New(), r)

	c.Request().SetHeader(http.Header{"X-New": {"2"}})
	require.Equal(t, "2", c.Get("X-New"))
	require.Empty(t, c.Get("X-Old"))
	require.Equal(t, "1", r.Header.Get("X-Old"))
}
