package bkoa

import (
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/url"
	"path"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/advdv/bkoa/internal/httpx"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/http/httpguts"
)

var (
	htmlBodyRe = regexp.MustCompile(`^\s*<`)
	etagFormRe = regexp.MustCompile(`^(W/)?"`)
)

// Response is the framework's view of the outgoing response. The body is kept until the middleware chain has
// completed, status and headers go to the [ResponseWriter] right away.
type Response struct {
	ctx *Context
	ext extValues

	body             any
	explicitStatus   bool
	explicitNullBody bool
}

func (r *Response) rw() ResponseWriter { return r.ctx.res }

// Ctx returns the context the response belongs to.
func (r *Response) Ctx() *Context { return r.ctx }

// App returns the application.
func (r *Response) App() *Application { return r.ctx.app }

// Request returns the request of the same context.
func (r *Response) Request() *Request { return r.ctx.request }

// Ext returns an extension value, set on this response or defined on the application's Response proto.
func (r *Response) Ext(name string) (any, bool) { return lookupExt(r.ext, r.ctx.app.Response, name) }

// SetExt sets an extension value on this response only.
func (r *Response) SetExt(name string, v any) { r.ext.set(name, v) }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.rw().Header() }

// Headers is an alias of [Response.Header].
func (r *Response) Headers() http.Header { return r.Header() }

func (r *Response) Status() int { return r.rw().StatusCode() }

// SetStatus sets the status code. It panics for codes outside of [100, 999], like
// [http.ResponseWriter.WriteHeader] does, and does nothing once the headers are sent. Setting a status that
// doesn't allow a body clears the body.
func (r *Response) SetStatus(code int) {
	if r.HeaderSent() {
		return
	}

	if code < 100 || code > 999 {
		panic(errors.Newf("invalid status code: %d", code))
	}

	r.explicitStatus = true
	r.rw().SetStatusCode(code)
	if r.ctx.req.ProtoMajor < 2 {
		r.rw().SetStatusMessage(http.StatusText(code))
	}

	if truthy(r.body) && IsEmptyStatus(code) {
		r.SetBody(nil)
	}
}

// Message returns the status message, or the reason phrase of the status.
func (r *Response) Message() string {
	if msg := r.rw().StatusMessage(); msg != "" {
		return msg
	}

	return http.StatusText(r.Status())
}

func (r *Response) SetMessage(msg string) { r.rw().SetStatusMessage(msg) }

// Body returns the body. It is nil when no body was set or when it was set to nil.
func (r *Response) Body() any { return r.body }

// ExplicitNullBody reports whether the body was set to nil, as opposed to never set or unset.
func (r *Response) ExplicitNullBody() bool { return r.explicitNullBody }

// SetBody sets the body and adjusts status and headers to it:
//
//   - nil: status 204 unless already a status without body, Content-Type, Content-Length and
//     Transfer-Encoding are removed
//   - string: text/html when it starts with "<", text/plain otherwise, and its length
//   - []byte: application/octet-stream and its length
//   - io.Reader: application/octet-stream, streamed and closed on finish when it is an io.Closer
//   - anything else: application/json, the length is computed when responding
//
// Content-Type is only set when none is present. Any non-nil body sets status 200 when no status was set.
func (r *Response) SetBody(v any) {
	if v == nil {
		r.clearBody(true)
		return
	}

	original := r.body
	r.body = v

	if !r.explicitStatus {
		r.SetStatus(http.StatusOK)
	}

	setType := !r.Has("Content-Type")
	switch b := v.(type) {
	case string:
		if setType {
			if htmlBodyRe.MatchString(b) {
				r.SetType("html")
			} else {
				r.SetType("text")
			}
		}
		r.SetLength(int64(len(b)))
	case []byte:
		if setType {
			r.SetType("bin")
		}
		r.SetLength(int64(len(b)))
	case io.Reader:
		same := sameBody(original, v)
		if closer, ok := b.(io.Closer); ok && !same {
			r.rw().OnFinished(func(error) {
				if err := closer.Close(); err != nil {
					r.ctx.app.Logger().LogTransportError(errors.Wrap(err, "close body"))
				}
			})
		}

		if original != nil && !same {
			r.Remove("Content-Length")
		}

		if setType {
			r.SetType("bin")
		}
	default:
		r.Remove("Content-Length")
		r.SetType("json")
	}
}

// UnsetBody removes the body, the same as setting it to nil except that it is not recorded as an explicit nil.
func (r *Response) UnsetBody() { r.clearBody(false) }

func (r *Response) clearBody(explicit bool) {
	r.body = nil
	if !IsEmptyStatus(r.Status()) {
		r.SetStatus(http.StatusNoContent)
	}

	if explicit {
		r.explicitNullBody = true
	}

	r.Remove("Content-Type")
	r.Remove("Content-Length")
	r.Remove("Transfer-Encoding")
}

// Length returns the Content-Length header, or the length the body will have. Streams have no known length.
func (r *Response) Length() (int64, bool) {
	if r.Has("Content-Length") {
		n, err := strconv.ParseInt(r.Get("Content-Length"), 10, 64)
		if err != nil {
			return 0, true
		}
		return n, true
	}

	switch b := r.body.(type) {
	case nil, io.Reader:
		return 0, false
	case string:
		return int64(len(b)), true
	case []byte:
		return int64(len(b)), true
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return 0, false
		}
		return int64(len(data)), true
	}
}

// SetLength sets Content-Length, unless the response uses a transfer encoding.
func (r *Response) SetLength(n int64) {
	if r.Has("Transfer-Encoding") {
		return
	}

	r.Set("Content-Length", strconv.FormatInt(n, 10))
}

// Type returns the response content type without parameters.
func (r *Response) Type() string {
	typ, _, _ := strings.Cut(r.Get("Content-Type"), ";")
	return strings.TrimSpace(typ)
}

// SetType sets the content type. Both full types and extensions such as "json" are accepted and a charset is added
// where one applies. An empty or unknown type removes the header.
func (r *Response) SetType(typ string) {
	if ct, ok := httpx.ContentType(typ); ok {
		r.Set("Content-Type", ct)
		return
	}

	r.Remove("Content-Type")
}

// Is matches the response content type against types.
func (r *Response) Is(types ...string) (string, bool) { return httpx.TypeIs(r.Type(), types...) }

func (r *Response) Get(field string) string { return r.Header().Get(field) }

func (r *Response) Has(field string) bool {
	_, ok := r.Header()[http.CanonicalHeaderKey(field)]
	return ok
}

// Set replaces a header. It does nothing once the headers are sent and panics for invalid names or values.
func (r *Response) Set(field string, vals ...string) {
	if r.HeaderSent() {
		return
	}

	mustValidHeader(field, vals)
	r.Header()[http.CanonicalHeaderKey(field)] = vals
}

// SetAll sets every header in fields.
func (r *Response) SetAll(fields map[string]string) {
	for k, v := range fields {
		r.Set(k, v)
	}
}

// Append adds values to a header.
func (r *Response) Append(field string, vals ...string) {
	if r.HeaderSent() {
		return
	}

	mustValidHeader(field, vals)
	for _, v := range vals {
		r.Header().Add(field, v)
	}
}

// Remove deletes a header.
func (r *Response) Remove(field string) {
	if r.HeaderSent() {
		return
	}

	r.Header().Del(field)
}

// Vary adds field to the Vary header.
func (r *Response) Vary(field string) {
	if r.HeaderSent() {
		return
	}

	h := r.Header()
	if v := httpx.VaryAppend(strings.Join(h.Values("Vary"), ", "), field); v != "" {
		h.Set("Vary", v)
	}
}

// Redirect redirects to target. The target "back" means the referrer, then the first alt, then "/". The status
// becomes 302 unless a redirect status was set already.
func (r *Response) Redirect(target string, alt ...string) {
	if target == "back" {
		target = r.ctx.request.Get("Referrer")
		if target == "" && len(alt) > 0 {
			target = alt[0]
		}
		if target == "" {
			target = "/"
		}
	}

	if absoluteURLRe.MatchString(target) {
		if u, err := url.Parse(target); err == nil {
			target = u.String()
		}
	}

	r.Set("Location", httpx.EncodeURL(target))
	if !IsRedirectStatus(r.Status()) {
		r.SetStatus(http.StatusFound)
	}

	if _, ok := r.ctx.request.Accepts("html"); ok {
		r.SetType("text/html; charset=utf-8")
		r.SetBody("Redirecting to " + html.EscapeString(target) + ".")
		return
	}

	r.SetType("text/plain; charset=utf-8")
	r.SetBody("Redirecting to " + target + ".")
}

// Back redirects to the referrer, or the first alt, or "/".
func (r *Response) Back(alt ...string) { r.Redirect("back", alt...) }

// Attachment makes the client download the response, optionally as filename.
func (r *Response) Attachment(filename ...string) {
	var name string
	if len(filename) > 0 {
		name = filename[0]
	}

	if name != "" {
		r.SetType(path.Ext(name))
	}

	r.Set("Content-Disposition", httpx.ContentDisposition(name))
}

// LastModified returns the Last-Modified header.
func (r *Response) LastModified() (time.Time, bool) {
	v := r.Get("Last-Modified")
	if v == "" {
		return time.Time{}, false
	}

	t, err := http.ParseTime(v)
	return t, err == nil
}

func (r *Response) SetLastModified(t time.Time) {
	r.Set("Last-Modified", t.UTC().Format(http.TimeFormat))
}

func (r *Response) Etag() string { return r.Get("ETag") }

// SetEtag sets the ETag header, quoting the value unless it is quoted already.
func (r *Response) SetEtag(v string) {
	if !etagFormRe.MatchString(v) {
		v = `"` + v + `"`
	}

	r.Set("ETag", v)
}

func (r *Response) HeaderSent() bool { return r.rw().HeadersSent() }

func (r *Response) Writable() bool { return r.rw().Writable() }

// FlushHeaders sends the headers right away.
func (r *Response) FlushHeaders() error { return r.rw().FlushHeaders() }

func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status  int         `json:"status"`
		Message string      `json:"message"`
		Header  http.Header `json:"header"`
	}{r.Status(), r.Message(), r.Header()})
}

func mustValidHeader(field string, vals []string) {
	if !httpguts.ValidHeaderFieldName(field) {
		panic(errors.Newf("invalid header name: %q", field))
	}

	for _, v := range vals {
		if !httpguts.ValidHeaderFieldValue(v) {
			panic(errors.Newf("invalid value for header %q", field))
		}
	}
}

// truthy reports whether a body counts as set when a status without body is assigned.
func truthy(body any) bool {
	s, ok := body.(string)
	return body != nil && (!ok || s != "")
}

// sameBody reports whether b is the very value a already is.
func sameBody(a, b any) bool {
	if a == nil || b == nil {
		return false
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}

	return a == b
}
