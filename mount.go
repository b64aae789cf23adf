package bkoa

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// MountPathExt is the extension name under which [Mount] records the prefix a request was mounted on.
const MountPathExt = "mountPath"

// Mount runs mw for requests under prefix. The mounted middleware sees the path with the prefix stripped, the
// original path is restored when it calls next and once it returns. Requests outside of prefix skip mw entirely.
// Without a trailing slash the prefix only matches whole path segments: "/api" matches "/api" and "/api/users" but
// not "/apis". Mounting on "/" runs mw for every request, unchanged.
func Mount(prefix string, mw ...Middleware) Middleware {
	if !strings.HasPrefix(prefix, "/") {
		panic(errors.Newf(`bkoa: mount path must begin with "/", got %q`, prefix))
	}

	downstream := Compose(mw...)
	if prefix == "/" {
		return downstream
	}

	trailingSlash := strings.HasSuffix(prefix, "/")

	match := func(p string) (string, bool) {
		if !strings.HasPrefix(p, prefix) {
			return "", false
		}

		stripped := strings.Replace(p, prefix, "", 1)
		if stripped == "" {
			stripped = "/"
		}

		if !trailingSlash && stripped[0] != '/' {
			return "", false
		}

		return stripped, true
	}

	return func(c *Context, next Next) error {
		prev := c.Path()
		stripped, ok := match(prev)
		if !ok {
			return next()
		}

		prevMount, hadMount := c.Ext(MountPathExt)
		c.SetExt(MountPathExt, prefix)
		c.SetPath(stripped)

		restore := func() {
			c.SetPath(prev)
			if hadMount {
				c.SetExt(MountPathExt, prevMount)
			} else {
				delete(c.ext, MountPathExt)
			}
		}

		err := downstream(c, func() error {
			restore()
			err := next()
			c.SetExt(MountPathExt, prefix)
			c.SetPath(stripped)
			return err
		})

		restore()
		return err
	}
}
