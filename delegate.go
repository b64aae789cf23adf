package bkoa

import (
	"net/http"
	"net/url"
	"time"

	"github.com/advdv/bkoa/accepts"
)

// Request accessors.

func (c *Context) AcceptsLanguages(langs ...string) (string, bool) {
	return c.request.AcceptsLanguages(langs...)
}

func (c *Context) AcceptsEncodings(encodings ...string) (string, bool) {
	return c.request.AcceptsEncodings(encodings...)
}

func (c *Context) AcceptsCharsets(charsets ...string) (string, bool) {
	return c.request.AcceptsCharsets(charsets...)
}

func (c *Context) Accepts(types ...string) (string, bool) { return c.request.Accepts(types...) }
func (c *Context) Get(field string) string { return c.request.Get(field) }
func (c *Context) Is(types ...string) (string, bool) { return c.request.Is(types...) }
func (c *Context) Querystring() string { return c.request.Querystring() }
func (c *Context) SetQuerystring(s string) { c.request.SetQuerystring(s) }
func (c *Context) Idempotent() bool { return c.request.Idempotent() }
func (c *Context) Socket() Socket { return c.request.Socket() }
func (c *Context) Search() string { return c.request.Search() }
func (c *Context) SetSearch(s string) { c.request.SetSearch(s) }
func (c *Context) Method() string { return c.request.Method() }
func (c *Context) SetMethod(m string) { c.request.SetMethod(m) }
func (c *Context) Query() url.Values { return c.request.Query() }
func (c *Context) SetQuery(v url.Values) { c.request.SetQuery(v) }
func (c *Context) Path() string { return c.request.Path() }
func (c *Context) SetPath(p string) { c.request.SetPath(p) }
func (c *Context) URL() string { return c.request.URL() }
func (c *Context) SetURL(s string) { c.request.SetURL(s) }
func (c *Context) Accept() *accepts.Accepts { return c.request.Accept() }
func (c *Context) SetAccept(a *accepts.Accepts) { c.request.SetAccept(a) }
func (c *Context) Origin() string { return c.request.Origin() }
func (c *Context) Href() string { return c.request.Href() }
func (c *Context) Subdomains() []string { return c.request.Subdomains() }
func (c *Context) Protocol() string { return c.request.Protocol() }
func (c *Context) Host() string { return c.request.Host() }
func (c *Context) Hostname() string { return c.request.Hostname() }
func (c *Context) ParsedURL() *url.URL { return c.request.ParsedURL() }
func (c *Context) Header() http.Header { return c.request.Header() }
func (c *Context) Headers() http.Header { return c.request.Headers() }
func (c *Context) Secure() bool { return c.request.Secure() }
func (c *Context) Stale() bool { return c.request.Stale() }
func (c *Context) Fresh() bool { return c.request.Fresh() }
func (c *Context) IPs() []string { return c.request.IPs() }
func (c *Context) IP() string { return c.request.IP() }

// Response accessors.

func (c *Context) Attachment(filename ...string) { c.response.Attachment(filename...) }
func (c *Context) Redirect(target string, alt ...string) { c.response.Redirect(target, alt...) }
func (c *Context) Remove(field string) { c.response.Remove(field) }
func (c *Context) Vary(field string) { c.response.Vary(field) }
func (c *Context) Has(field string) bool { return c.response.Has(field) }
func (c *Context) Set(field string, vals ...string) { c.response.Set(field, vals...) }
func (c *Context) Append(field string, vals ...string) { c.response.Append(field, vals...) }
func (c *Context) FlushHeaders() error { return c.response.FlushHeaders() }
func (c *Context) Status() int { return c.response.Status() }
func (c *Context) SetStatus(code int) { c.response.SetStatus(code) }
func (c *Context) Message() string { return c.response.Message() }
func (c *Context) SetMessage(msg string) { c.response.SetMessage(msg) }
func (c *Context) Body() any { return c.response.Body() }
func (c *Context) SetBody(v any) { c.response.SetBody(v) }
func (c *Context) UnsetBody() { c.response.UnsetBody() }
func (c *Context) Length() (int64, bool) { return c.response.Length() }
func (c *Context) SetLength(n int64) { c.response.SetLength(n) }
func (c *Context) Type() string { return c.response.Type() }
func (c *Context) SetType(typ string) { c.response.SetType(typ) }
func (c *Context) LastModified() (time.Time, bool) { return c.response.LastModified() }
func (c *Context) SetLastModified(t time.Time) { c.response.SetLastModified(t) }
func (c *Context) Etag() string { return c.response.Etag() }
func (c *Context) SetEtag(v string) { c.response.SetEtag(v) }
func (c *Context) HeaderSent() bool { return c.response.HeaderSent() }
func (c *Context) Writable() bool { return c.response.Writable() }
