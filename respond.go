package bkoa

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
)

// respond writes the body once the middleware chain completed without error.
func respond(c *Context) {
	if !c.respond || !c.res.Writable() {
		return
	}

	res := c.response
	code := res.Status()

	if IsEmptyStatus(code) {
		res.SetBody(nil)
		c.res.End(nil)
		return
	}

	if c.req.Method == http.MethodHead {
		if !res.HeaderSent() && !res.Has("Content-Length") {
			if n, ok := res.Length(); ok {
				res.SetLength(n)
			}
		}

		c.res.End(nil)
		return
	}

	switch body := res.body.(type) {
	case nil:
		if res.explicitNullBody {
			res.Remove("Content-Type")
			res.Remove("Transfer-Encoding")
			res.SetLength(0)
			c.res.End(nil)
			return
		}

		msg := strconv.Itoa(code)
		if c.req.ProtoMajor < 2 {
			msg = res.Message()
		}
		if msg == "" {
			msg = strconv.Itoa(code)
		}

		if !res.HeaderSent() {
			res.SetType("text")
			res.SetLength(int64(len(msg)))
		}

		c.res.End([]byte(msg))
	case []byte:
		c.res.End(body)
	case string:
		c.res.End([]byte(body))
	case io.Reader:
		if err := c.res.Pipe(body); err != nil {
			c.OnError(err)
		}
	default:
		data, err := json.Marshal(body)
		if err != nil {
			c.OnError(errors.Wrap(err, "marshal body"))
			return
		}

		if !res.HeaderSent() {
			res.SetLength(int64(len(data)))
		}

		c.res.End(data)
	}
}
