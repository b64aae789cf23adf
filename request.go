package bkoa

import (
	"encoding/json"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/advdv/bkoa/accepts"
	"github.com/advdv/bkoa/internal/httpx"
	"github.com/samber/lo"
)

var absoluteURLRe = regexp.MustCompile(`(?i)^https?://`)

var idempotentMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPut,
	http.MethodDelete, http.MethodOptions, http.MethodTrace,
}

// Request is the framework's view of the incoming request. It always reads the current *http.Request of its
// [Context], so changes made through either are visible to both.
type Request struct {
	ctx *Context
	ext extValues

	ip    string
	ipSet bool

	query   url.Values
	queryOf string

	parsed *url.URL
	accept *accepts.Accepts
}

func (r *Request) raw() *http.Request { return r.ctx.req }

// Ctx returns the context the request belongs to.
func (r *Request) Ctx() *Context { return r.ctx }

// App returns the application.
func (r *Request) App() *Application { return r.ctx.app }

// Response returns the response of the same context.
func (r *Request) Response() *Response { return r.ctx.response }

// Ext returns an extension value, set on this request or defined on the application's Request proto.
func (r *Request) Ext(name string) (any, bool) { return lookupExt(r.ext, r.ctx.app.Request, name) }

// SetExt sets an extension value on this request only.
func (r *Request) SetExt(name string, v any) { r.ext.set(name, v) }

// Header returns the request headers.
func (r *Request) Header() http.Header { return r.raw().Header }

// Headers is an alias of [Request.Header].
func (r *Request) Headers() http.Header { return r.Header() }

// SetHeader replaces the request headers.
func (r *Request) SetHeader(h http.Header) {
	r.ctx.mutateRequest(func(req *http.Request) { req.Header = h })
}

// URL returns the request target, path and query.
func (r *Request) URL() string { return r.raw().URL.RequestURI() }

// SetURL replaces the request target.
func (r *Request) SetURL(s string) {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		if u, err = url.Parse(s); err != nil {
			return
		}
	}

	r.ctx.mutateRequest(func(req *http.Request) {
		req.URL = u
		req.RequestURI = s
	})
}

// OriginalURL returns the request target as it was received.
func (r *Request) OriginalURL() string { return r.ctx.originalURL }

// Origin returns the protocol and host.
func (r *Request) Origin() string { return r.Protocol() + "://" + r.Host() }

// Href returns the full request URL.
func (r *Request) Href() string {
	if absoluteURLRe.MatchString(r.ctx.originalURL) {
		return r.ctx.originalURL
	}

	return r.Origin() + r.ctx.originalURL
}

func (r *Request) Method() string { return r.raw().Method }

func (r *Request) SetMethod(m string) {
	r.ctx.mutateRequest(func(req *http.Request) { req.Method = m })
}

// Path returns the escaped request path.
func (r *Request) Path() string { return r.raw().URL.EscapedPath() }

// SetPath replaces the path and keeps the query string.
func (r *Request) SetPath(p string) {
	if p == r.Path() {
		return
	}

	r.ctx.mutateRequest(func(req *http.Request) {
		if unescaped, err := url.PathUnescape(p); err == nil {
			req.URL.Path, req.URL.RawPath = unescaped, p
		} else {
			req.URL.Path, req.URL.RawPath = p, ""
		}
		req.RequestURI = req.URL.RequestURI()
	})
}

// Query returns the parsed query string. The result is shared for as long as the query string doesn't change.
func (r *Request) Query() url.Values {
	qs := r.Querystring()
	if r.query == nil || r.queryOf != qs {
		r.query, _ = url.ParseQuery(qs)
		r.queryOf = qs
	}

	return r.query
}

func (r *Request) SetQuery(v url.Values) { r.SetQuerystring(v.Encode()) }

// Querystring returns the raw query string without the question mark.
func (r *Request) Querystring() string { return r.raw().URL.RawQuery }

func (r *Request) SetQuerystring(s string) {
	if s == r.Querystring() {
		return
	}

	r.ctx.mutateRequest(func(req *http.Request) {
		req.URL.RawQuery = s
		req.RequestURI = req.URL.RequestURI()
	})
}

// Search returns the query string with its question mark, or nothing.
func (r *Request) Search() string {
	if qs := r.Querystring(); qs != "" {
		return "?" + qs
	}

	return ""
}

func (r *Request) SetSearch(s string) { r.SetQuerystring(strings.TrimPrefix(s, "?")) }

// Host returns the host and port. X-Forwarded-Host is used when the application trusts its proxy.
func (r *Request) Host() string {
	var host string
	if r.ctx.app.Proxy() {
		host = r.raw().Header.Get("X-Forwarded-Host")
	}

	if host == "" {
		host = r.raw().Host
	}

	first, _, _ := strings.Cut(host, ",")
	return strings.TrimSpace(first)
}

// Hostname returns the host without port. IPv6 hosts keep their brackets.
func (r *Request) Hostname() string {
	host := r.Host()
	if host == "" {
		return ""
	}

	if host[0] == '[' {
		if name := r.ParsedURL().Hostname(); name != "" {
			return "[" + name + "]"
		}
		return ""
	}

	name, _, _ := strings.Cut(host, ":")
	return name
}

// ParsedURL returns the full request URL, parsed. It is computed once.
func (r *Request) ParsedURL() *url.URL {
	if r.parsed == nil {
		u, err := url.Parse(r.Origin() + r.ctx.originalURL)
		if err != nil {
			u = &url.URL{}
		}
		r.parsed = u
	}

	return r.parsed
}

// Fresh reports whether the client's cached copy is still valid. Only successful GET and HEAD requests can be
// fresh.
func (r *Request) Fresh() bool {
	if m := r.Method(); m != http.MethodGet && m != http.MethodHead {
		return false
	}

	s := r.ctx.response.Status()
	if (s >= 200 && s < 300) || s == http.StatusNotModified {
		return httpx.Fresh(r.raw().Header, r.ctx.res.Header())
	}

	return false
}

func (r *Request) Stale() bool { return !r.Fresh() }

func (r *Request) Idempotent() bool { return lo.Contains(idempotentMethods, r.Method()) }

// Socket describes the connection a request arrived on.
type Socket struct {
	RemoteAddr string
	LocalAddr  net.Addr
	Encrypted  bool
}

func (r *Request) Socket() Socket {
	req := r.raw()
	local, _ := req.Context().Value(http.LocalAddrContextKey).(net.Addr)
	return Socket{RemoteAddr: req.RemoteAddr, LocalAddr: local, Encrypted: req.TLS != nil}
}

// Charset returns the charset of the request body, if given.
func (r *Request) Charset() string {
	ct := r.raw().Header.Get("Content-Type")
	if ct == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}

	return params["charset"]
}

// Length returns the Content-Length of the request.
func (r *Request) Length() (int64, bool) {
	req := r.raw()
	if v := req.Header.Get("Content-Length"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}

	if req.ContentLength > 0 {
		return req.ContentLength, true
	}

	return 0, false
}

// Protocol returns "https" or "http". X-Forwarded-Proto is used when the application trusts its proxy.
func (r *Request) Protocol() string {
	req := r.raw()
	if req.TLS != nil {
		return "https"
	}

	if !r.ctx.app.Proxy() {
		return "http"
	}

	proto, _, _ := strings.Cut(req.Header.Get("X-Forwarded-Proto"), ",")
	if proto = strings.TrimSpace(proto); proto != "" {
		return proto
	}

	return "http"
}

func (r *Request) Secure() bool { return r.Protocol() == "https" }

// IPs returns the client address chain from the proxy IP header when the application trusts its proxy. With a
// max IPs count only the last addresses are returned.
func (r *Request) IPs() []string {
	app := r.ctx.app
	if !app.Proxy() {
		return []string{}
	}

	val := r.raw().Header.Get(app.ProxyIPHeader())
	if val == "" {
		return []string{}
	}

	ips := lo.Map(strings.Split(val, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	if n := app.MaxIPsCount(); n > 0 && len(ips) > n {
		ips = ips[len(ips)-n:]
	}

	return ips
}

// IP returns the client address. It is computed once per request.
func (r *Request) IP() string {
	if !r.ipSet {
		r.ip, r.ipSet = r.remoteIP(), true
	}

	return r.ip
}

func (r *Request) SetIP(ip string) { r.ip, r.ipSet = ip, true }

func (r *Request) remoteIP() string {
	if ips := r.IPs(); len(ips) > 0 && ips[0] != "" {
		return ips[0]
	}

	addr := r.raw().RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}

	return addr
}

// Subdomains returns the labels of the hostname before the subdomain offset, most significant first.
func (r *Request) Subdomains() []string {
	hostname := r.Hostname()
	if net.ParseIP(strings.Trim(hostname, "[]")) != nil {
		return []string{}
	}

	labels := lo.Reverse(strings.Split(hostname, "."))
	if offset := r.ctx.app.SubdomainOffset(); offset < len(labels) {
		return labels[offset:]
	}

	return []string{}
}

// Accept returns the content negotiator for the request.
func (r *Request) Accept() *accepts.Accepts {
	if r.accept == nil {
		r.accept = accepts.New(r.raw().Header)
	}

	return r.accept
}

func (r *Request) SetAccept(a *accepts.Accepts) { r.accept = a }

// Accepts returns the best of the offered types. Without offers it returns the client's preferred type.
func (r *Request) Accepts(types ...string) (string, bool) { return r.Accept().Type(types...) }

func (r *Request) AcceptsEncodings(encodings ...string) (string, bool) {
	return r.Accept().Encoding(encodings...)
}

func (r *Request) AcceptsCharsets(charsets ...string) (string, bool) {
	return r.Accept().Charset(charsets...)
}

func (r *Request) AcceptsLanguages(langs ...string) (string, bool) {
	return r.Accept().Language(langs...)
}

// HasBody reports whether the request carries a body.
func (r *Request) HasBody() bool {
	req := r.raw()
	return len(req.TransferEncoding) > 0 ||
		req.Header.Get("Transfer-Encoding") != "" ||
		req.Header.Get("Content-Length") != "" ||
		req.ContentLength > 0
}

// Is matches the request content type against types. Requests without a body never match.
func (r *Request) Is(types ...string) (string, bool) {
	if !r.HasBody() {
		return "", false
	}

	return httpx.TypeIs(r.raw().Header.Get("Content-Type"), types...)
}

// Type returns the request content type without parameters.
func (r *Request) Type() string {
	typ, _, _ := strings.Cut(r.raw().Header.Get("Content-Type"), ";")
	return strings.TrimSpace(typ)
}

// Get returns a request header. Referer and Referrer are interchangeable.
func (r *Request) Get(field string) string {
	req := r.raw()
	switch strings.ToLower(field) {
	case "referer", "referrer":
		if v := req.Header.Get("Referrer"); v != "" {
			return v
		}
		return req.Header.Get("Referer")
	case "host":
		if v := req.Header.Get("Host"); v != "" {
			return v
		}
		return req.Host
	default:
		return req.Header.Get(field)
	}
}

func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Method string      `json:"method"`
		URL    string      `json:"url"`
		Header http.Header `json:"header"`
	}{r.Method(), r.URL(), r.Header()})
}
