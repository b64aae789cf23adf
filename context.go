package bkoa

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/advdv/bkoa/cookies"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/http/httpguts"
)

// Context is created for every request. It embeds the request's context.Context, holds the [Request] and
// [Response] and a State map for middleware to share values. Most request and response accessors are available
// on the Context directly.
type Context struct {
	context.Context

	// State is free for the application's middleware to use.
	State map[string]any

	app         *Application
	req         *http.Request
	res         ResponseWriter
	request     *Request
	response    *Response
	originalURL string
	respond     bool
	cookies     *cookies.Jar
	ext         extValues
}

// App returns the application that created the context.
func (c *Context) App() *Application { return c.app }

// Req returns the current standard library request.
func (c *Context) Req() *http.Request { return c.req }

// Res returns the response writer.
func (c *Context) Res() ResponseWriter { return c.res }

func (c *Context) Request() *Request { return c.request }

func (c *Context) Response() *Response { return c.response }

// OriginalURL returns the request target as it was received, before any middleware changed it.
func (c *Context) OriginalURL() string { return c.originalURL }

// Respond reports whether the body is written when the middleware chain completes.
func (c *Context) Respond() bool { return c.respond }

// SetRespond with false leaves writing the response entirely to the middleware.
func (c *Context) SetRespond(v bool) { c.respond = v }

// SetContext replaces the carried context.Context, and that of the request. The new context must be derived from
// c.Context, not from c itself.
func (c *Context) SetContext(ctx context.Context) {
	c.Context = ctx
	c.req = c.req.WithContext(ctx)
}

// SetValue adds a value to the carried context.Context.
func (c *Context) SetValue(key, val any) {
	c.SetContext(context.WithValue(c.Context, key, val))
}

// mutateRequest changes a shallow copy of the request, the original is never modified.
func (c *Context) mutateRequest(fn func(r *http.Request)) {
	r := new(http.Request)
	*r = *c.req

	u := *c.req.URL
	r.URL = &u

	fn(r)
	c.req = r
}

// Ext returns an extension value, set on this context or defined on the application's Context proto.
func (c *Context) Ext(name string) (any, bool) { return lookupExt(c.ext, c.app.Context, name) }

// SetExt sets an extension value on this context only.
func (c *Context) SetExt(name string, v any) { c.ext.set(name, v) }

// Cookies returns the cookie jar, signed with the application keys.
func (c *Context) Cookies() *cookies.Jar {
	if c.cookies == nil {
		c.cookies = cookies.New(c.req, c.res.Header, cookies.Options{
			Keys:   c.app.Keygrip(),
			Secure: c.request.Secure(),
		})
	}

	return c.cookies
}

// Throw returns an http error built from args. Return it from the middleware to make the error handler respond
// with it.
//
//	return c.Throw(bkoa.ByStatus(403), bkoa.ByMessage("not allowed"))
func (c *Context) Throw(args ...ErrorArg) error {
	return NewHTTPError(args...)
}

// Assert returns nil when ok, and an http error otherwise. A zero status means 500, an empty message means the
// reason phrase of the status.
func (c *Context) Assert(ok bool, status int, msg string, args ...ErrorArg) error {
	if ok {
		return nil
	}

	if status == 0 {
		status = http.StatusInternalServerError
	}

	return NewHTTPError(append([]ErrorArg{ByStatus(status), ByMessage(msg)}, args...)...)
}

// OnError handles an error that ended the request. The error observers are always notified. When the headers were
// not sent yet the response is replaced by a plain text error: the message for exposed errors, the reason phrase
// otherwise.
func (c *Context) OnError(err error) {
	if err == nil {
		return
	}

	headerSent := c.res.HeadersSent() || !c.res.Writable()
	if headerSent {
		err = errors.Mark(err, ErrHeaderSent)
	}

	c.app.emitError(err, c)
	if headerSent {
		return
	}

	h := c.res.Header()
	for k := range h {
		delete(h, k)
	}

	for k, vals := range HeadersOf(err) {
		if !httpguts.ValidHeaderFieldName(k) {
			continue
		}

		for _, v := range vals {
			if httpguts.ValidHeaderFieldValue(v) {
				h.Add(k, v)
			}
		}
	}

	c.response.SetType("text")

	status := StatusOf(err)
	if status == 0 && errors.Is(err, fs.ErrNotExist) {
		status = http.StatusNotFound
	}

	if http.StatusText(status) == "" {
		status = http.StatusInternalServerError
	}

	msg := http.StatusText(status)
	if ExposeOf(err) {
		if httpErr, ok := asError(err); ok {
			msg = httpErr.Message()
		} else {
			msg = err.Error()
		}
	}

	c.response.SetStatus(status)
	c.response.SetLength(int64(len(msg)))
	c.res.End([]byte(msg))
}

func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Request     *Request     `json:"request"`
		Response    *Response    `json:"response"`
		App         *Application `json:"app"`
		OriginalURL string       `json:"originalUrl"`
		Req         string       `json:"req"`
		Res         string       `json:"res"`
		Socket      string       `json:"socket"`
	}{
		Request:     c.request,
		Response:    c.response,
		App:         c.app,
		OriginalURL: c.originalURL,
		Req:         "<original http.Request>",
		Res:         "<original http.ResponseWriter>",
		Socket:      "<original net.Conn>",
	})
}

// String implements fmt.Stringer.
func (c *Context) String() string {
	return c.Method() + " " + c.URL() + " " + strconv.Itoa(c.Status())
}
