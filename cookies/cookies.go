// Package cookies reads and writes request cookies, optionally signing them
// so that tampering can be detected. A signed cookie "name" travels with a
// companion cookie "name.sig" holding the keygrip signature of "name=value".
package cookies

import (
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

var (
	// ErrNoKeys is returned when a signed cookie is requested but no keys were
	// configured.
	ErrNoKeys = errors.New(".keys required for signed cookies")

	// ErrInsecure is returned when a secure cookie is set over a connection
	// that is not encrypted.
	ErrInsecure = errors.New("cannot send secure cookie over unencrypted connection")
)

// Options configure a Jar.
type Options struct {
	// Keys sign and verify cookies. Without keys only unsigned cookies work.
	Keys *Keygrip
	// Secure tells the jar the connection is encrypted.
	Secure bool
}

// Jar is a per-request view of the incoming Cookie header and the outgoing
// Set-Cookie headers.
type Jar struct {
	req    *http.Request
	header func() http.Header
	keys   *Keygrip
	secure bool
}

// New creates a jar. header must return the live response header map.
func New(r *http.Request, header func() http.Header, opts Options) *Jar {
	keys := opts.Keys
	if keys != nil && keys.Len() == 0 {
		keys = nil
	}

	return &Jar{req: r, header: header, keys: keys, secure: opts.Secure}
}

type settings struct {
	path      string
	domain    string
	maxAge    int
	expires   time.Time
	secure    *bool
	httpOnly  bool
	sameSite  http.SameSite
	signed    *bool
	overwrite bool
}

// Option tweaks how a single cookie is read or written.
type Option func(*settings)

// Path sets the cookie path. The default is "/".
func Path(p string) Option { return func(s *settings) { s.path = p } }

// Domain sets the cookie domain.
func Domain(d string) Option { return func(s *settings) { s.domain = d } }

// MaxAge sets the lifetime of the cookie.
func MaxAge(d time.Duration) Option {
	return func(s *settings) {
		s.maxAge = int(d / time.Second)
		if s.maxAge == 0 && d > 0 {
			s.maxAge = 1
		}
		s.expires = time.Now().Add(d)
	}
}

// Expires sets an absolute expiry.
func Expires(t time.Time) Option { return func(s *settings) { s.expires = t } }

// Secure marks the cookie as secure.
func Secure(v bool) Option { return func(s *settings) { s.secure = &v } }

// HTTPOnly controls the HttpOnly attribute. It is on by default.
func HTTPOnly(v bool) Option { return func(s *settings) { s.httpOnly = v } }

// SameSite sets the SameSite attribute.
func SameSite(v http.SameSite) Option { return func(s *settings) { s.sameSite = v } }

// Signed controls signing. Writes are signed by default when the jar has
// keys, reads only when asked for.
func Signed(v bool) Option { return func(s *settings) { s.signed = &v } }

// Overwrite replaces Set-Cookie headers already queued for the same name.
func Overwrite(v bool) Option { return func(s *settings) { s.overwrite = v } }

func newSettings(opts []Option) *settings {
	s := &settings{path: "/", httpOnly: true}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the value of the named request cookie. With Signed(true) the
// value is only returned when its signature verifies. A value signed by an
// older key is re-signed with the primary key, a bad signature is cleared.
func (j *Jar) Get(name string, opts ...Option) (string, bool) {
	c, err := j.req.Cookie(name)
	if err != nil {
		return "", false
	}

	s := newSettings(opts)
	if s.signed == nil || !*s.signed {
		return c.Value, true
	}

	if j.keys == nil {
		return "", false
	}

	sigName := name + ".sig"
	remote, ok := j.Get(sigName)
	if !ok {
		return "", false
	}

	data := name + "=" + c.Value
	switch idx := j.keys.Index(data, remote); {
	case idx < 0:
		_ = j.Remove(sigName, Signed(false))
		return "", false
	case idx > 0:
		_ = j.Set(sigName, j.keys.Sign(data), Signed(false))
	}

	return c.Value, true
}

// Set queues a Set-Cookie header for name. When signing, a companion
// "name.sig" cookie is queued as well.
func (j *Jar) Set(name, value string, opts ...Option) error {
	s := newSettings(opts)
	return j.set(name, value, s, false)
}

// Remove queues an expired cookie so the client drops it.
func (j *Jar) Remove(name string, opts ...Option) error {
	s := newSettings(opts)
	return j.set(name, "", s, true)
}

func (j *Jar) set(name, value string, s *settings, remove bool) error {
	if s.secure != nil && *s.secure && !j.secure {
		return ErrInsecure
	}

	signed := j.keys != nil
	if s.signed != nil {
		signed = *s.signed
	}

	if signed && j.keys == nil {
		return ErrNoKeys
	}

	secure := j.secure
	if s.secure != nil {
		secure = *s.secure
	}

	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.path,
		Domain:   s.domain,
		MaxAge:   s.maxAge,
		Expires:  s.expires,
		Secure:   secure,
		HttpOnly: s.httpOnly,
		SameSite: s.sameSite,
	}

	if remove {
		c.Value, c.MaxAge, c.Expires = "", 0, time.Unix(0, 0)
	}

	h := j.header()
	j.push(h, c, s.overwrite)

	if signed {
		sig := *c
		sig.Name = name + ".sig"
		sig.Value = j.keys.Sign(c.Name + "=" + c.Value)
		j.push(h, &sig, s.overwrite)
	}

	return nil
}

func (j *Jar) push(h http.Header, c *http.Cookie, overwrite bool) {
	if overwrite {
		prefix := c.Name + "="
		h["Set-Cookie"] = lo.Reject(h.Values("Set-Cookie"), func(v string, _ int) bool {
			return strings.HasPrefix(v, prefix)
		})
	}

	h.Add("Set-Cookie", c.String())
}
