// Package s3serve provides middleware that serves objects from an S3 bucket.
//
//	app.Use(bkoa.Mount("/assets", s3serve.New(client, "my-bucket", s3serve.WithIndex("index.html"))))
package s3serve

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/advdv/bkoa"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// GetObjectAPI is the part of the S3 client the middleware uses.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type server struct {
	client       GetObjectAPI
	bucket       string
	prefix       string
	index        string
	cacheControl string
}

// Option configures the middleware.
type Option func(*server)

// WithPrefix is prepended to the request path to form the object key.
func WithPrefix(prefix string) Option {
	return func(s *server) { s.prefix = strings.Trim(prefix, "/") }
}

// WithIndex sets the object name served for paths that end in a slash.
func WithIndex(name string) Option {
	return func(s *server) { s.index = name }
}

// WithCacheControl sets Cache-Control for objects that have none.
func WithCacheControl(v string) Option {
	return func(s *server) { s.cacheControl = v }
}

// New returns middleware that answers GET and HEAD requests with the object of the request path. Requests
// for keys that do not exist, and all other methods, continue downstream.
func New(client GetObjectAPI, bucket string, opts ...Option) bkoa.Middleware {
	s := &server{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(s)
	}

	return s.serve
}

func (s *server) key(p string) string {
	dir := strings.HasSuffix(p, "/")

	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if dir && s.index != "" {
		key = path.Join(key, s.index)
	}

	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}

	return key
}

func (s *server) serve(c *bkoa.Context, next bkoa.Next) error {
	if c.Method() != http.MethodGet && c.Method() != http.MethodHead {
		return next()
	}

	key := s.key(c.Path())
	if key == "" || key == s.prefix {
		return next()
	}

	out, err := s.client.GetObject(c, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	var noSuchKey *types.NoSuchKey
	switch {
	case errors.As(err, &noSuchKey):
		return next()
	case err != nil:
		return errors.Wrapf(err, "get object %q", key)
	}

	c.SetBody(out.Body)

	if ct := aws.ToString(out.ContentType); ct != "" {
		c.Set("Content-Type", ct)
	}

	if out.ContentLength != nil {
		c.SetLength(*out.ContentLength)
	}

	if etag := aws.ToString(out.ETag); etag != "" {
		c.SetEtag(etag)
	}

	if out.LastModified != nil {
		c.SetLastModified(*out.LastModified)
	}

	switch cc := aws.ToString(out.CacheControl); {
	case cc != "":
		c.Set("Cache-Control", cc)
	case s.cacheControl != "":
		c.Set("Cache-Control", s.cacheControl)
	}

	if c.Fresh() {
		c.SetStatus(http.StatusNotModified)
	}

	return nil
}
