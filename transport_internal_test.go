package bkoa

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func newTestWriter() (*responseWriter, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rw.(*responseWriter), rec
}

func TestResponseWriterStatus(t *testing.T) {
	rw, rec := newTestWriter()
	require.Equal(t, http.StatusOK, rw.StatusCode())
	require.False(t, rw.HeadersSent())

	rw.SetStatusCode(http.StatusTeapot)
	rw.SetStatusMessage("short")
	require.Equal(t, "short", rw.StatusMessage())

	rw.End([]byte("tea"))
	require.True(t, rw.HeadersSent())
	require.False(t, rw.Writable())

	rw.SetStatusCode(http.StatusOK)
	require.Equal(t, http.StatusTeapot, rw.StatusCode())
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "tea", rec.Body.String())
	require.Same(t, rec, rw.Unwrap())
}

func TestResponseWriterEndOnce(t *testing.T) {
	rw, rec := newTestWriter()
	rw.End([]byte("a"))
	rw.End([]byte("b"))

	_, err := rw.Write([]byte("c"))
	require.ErrorIs(t, err, errWriteAfterEnd)
	require.Equal(t, "a", rec.Body.String())
}

func TestResponseWriterFinish(t *testing.T) {
	rw, _ := newTestWriter()

	var calls []error
	rw.OnFinished(func(err error) { calls = append(calls, err) })

	sentinel := errors.New("fail")
	rw.finish(sentinel)
	rw.finish(nil)
	require.Equal(t, []error{sentinel}, calls)
	require.False(t, rw.Writable())

	var late bool
	rw.OnFinished(func(err error) { late = err == nil })
	require.True(t, late)
}

func TestResponseWriterWriteFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(brokenWriter{rec}, httptest.NewRequest(http.MethodGet, "/", nil)).(*responseWriter)

	var finished error
	rw.OnFinished(func(err error) { finished = err })

	rw.End([]byte("body"))
	require.ErrorContains(t, finished, "connection reset")
}

func TestResponseWriterPipe(t *testing.T) {
	t.Run("copies", func(t *testing.T) {
		rw, rec := newTestWriter()
		require.NoError(t, rw.Pipe(strings.NewReader("streamed")))
		require.Equal(t, "streamed", rec.Body.String())
		require.False(t, rw.Writable())
	})

	t.Run("empty source", func(t *testing.T) {
		rw, rec := newTestWriter()
		require.NoError(t, rw.Pipe(strings.NewReader("")))
		require.True(t, rw.HeadersSent())
		require.Empty(t, rec.Body.String())
	})

	t.Run("early failure does not commit", func(t *testing.T) {
		rw, _ := newTestWriter()
		err := rw.Pipe(&erroringReader{err: io.ErrClosedPipe})
		require.ErrorIs(t, err, io.ErrClosedPipe)
		require.False(t, rw.HeadersSent())
		require.True(t, rw.Writable())
	})

	t.Run("write failure finishes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := NewResponseWriter(brokenWriter{rec}, httptest.NewRequest(http.MethodGet, "/", nil)).(*responseWriter)

		var finished error
		rw.OnFinished(func(err error) { finished = err })

		require.NoError(t, rw.Pipe(strings.NewReader("data")))
		require.ErrorContains(t, finished, "connection reset")
	})
}

type erroringReader struct{ err error }

func (r *erroringReader) Read([]byte) (int, error) { return 0, r.err }

func TestResponseWriterInformational(t *testing.T) {
	rw, _ := newTestWriter()
	rw.WriteHeader(http.StatusEarlyHints)
	require.False(t, rw.HeadersSent())

	rw.WriteHeader(http.StatusAccepted)
	require.True(t, rw.HeadersSent())
	require.Equal(t, http.StatusAccepted, rw.StatusCode())
}

func TestResponseWriterCanceledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	rw := NewResponseWriter(httptest.NewRecorder(), httptest.NewRequestWithContext(ctx, http.MethodGet, "/", nil))
	require.True(t, rw.Writable())

	cancel()
	require.False(t, rw.Writable())
}

func TestNonErrorThrown(t *testing.T) {
	require.EqualError(t, recovered(42), "non-error thrown: 42")
	require.EqualError(t, recovered(complex(1, 2)), `non-error thrown: "(1+2i)"`)
}
