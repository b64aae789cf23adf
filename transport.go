package bkoa

import (
	"io"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
)

// ResponseWriter implements the http.ResponseWriter but keeps track of the state the framework needs: the status
// code that will be written, whether the headers were sent, whether the response was ended and who wants to know
// when it is finished.
type ResponseWriter interface {
	http.ResponseWriter

	// StatusCode returns the status code that is, or will be, written.
	StatusCode() int
	// SetStatusCode changes the status code if the headers were not sent yet.
	SetStatusCode(code int)
	// StatusMessage returns the status message, empty when none was set.
	StatusMessage() string
	// SetStatusMessage sets the status message. net/http always writes the
	// standard reason phrase on the wire, the message is kept for reading.
	SetStatusMessage(msg string)
	// HeadersSent reports whether the status line and headers were written.
	HeadersSent() bool
	// Writable reports whether the response may still be written to.
	Writable() bool
	// FlushHeaders writes the headers and flushes them to the client.
	FlushHeaders() error
	// End writes body, if any, and ends the response.
	End(body []byte)
	// Pipe copies src to the response and ends it. Only failures of src are
	// returned, failures to write finish the response with the error.
	Pipe(src io.Reader) error
	// OnFinished registers fn to be called once the response is finished.
	OnFinished(fn func(err error))
	// Unwrap returns the underlying writer.
	Unwrap() http.ResponseWriter
}

// finisher is implemented by writers that need to be told the request is done. Only the dispatch that claimed the
// writer finishes it, an application nested through [Adapt] shares the writer of the outer one.
type finisher interface {
	claim() bool
	finish(err error)
}

var errWriteAfterEnd = errors.New("write after end")

// pipeBufferSize is the size of the buffer used to copy stream bodies.
const pipeBufferSize = 32 * 1024

type responseWriter struct {
	resp http.ResponseWriter
	req  *http.Request

	status  int
	message string
	sent    bool
	ended   bool

	mu        sync.Mutex
	claimed   bool
	finished  bool
	callbacks []func(error)
}

// NewResponseWriter adapts a standard library response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) ResponseWriter {
	return &responseWriter{resp: w, req: r, status: http.StatusOK}
}

func (w *responseWriter) Header() http.Header { return w.resp.Header() }

func (w *responseWriter) Unwrap() http.ResponseWriter { return w.resp }

func (w *responseWriter) StatusCode() int { return w.status }

func (w *responseWriter) SetStatusCode(code int) {
	if w.sent {
		return
	}

	w.status = code
}

func (w *responseWriter) StatusMessage() string { return w.message }

func (w *responseWriter) SetStatusMessage(msg string) { w.message = msg }

func (w *responseWriter) HeadersSent() bool { return w.sent }

func (w *responseWriter) Writable() bool {
	if w.ended || w.isFinished() {
		return false
	}

	return w.req.Context().Err() == nil
}

// WriteHeader writes the headers with code. Informational codes are passed
// through without committing the response.
func (w *responseWriter) WriteHeader(code int) {
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.resp.WriteHeader(code)
		return
	}

	w.SetStatusCode(code)
	w.commit()
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.ended {
		return 0, errWriteAfterEnd
	}

	w.commit()
	return w.resp.Write(p)
}

// Flush implements http.Flusher for handlers that stream.
func (w *responseWriter) Flush() {
	_ = w.FlushHeaders()
}

func (w *responseWriter) FlushHeaders() error {
	w.commit()
	if err := http.NewResponseController(w.resp).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return errors.Wrap(err, "flush")
	}

	return nil
}

func (w *responseWriter) End(body []byte) {
	if w.ended {
		return
	}

	w.commit()
	w.ended = true
	if len(body) == 0 {
		return
	}

	if _, err := w.resp.Write(body); err != nil {
		w.finish(errors.Wrap(err, "write body"))
	}
}

func (w *responseWriter) Pipe(src io.Reader) error {
	if w.ended {
		return nil
	}

	buf := make([]byte, pipeBufferSize)

	// read the first chunk before committing so a source that fails right
	// away can still be turned into an error response.
	var n int
	var rerr error
	for n == 0 && rerr == nil {
		n, rerr = src.Read(buf)
	}

	if n == 0 && !errors.Is(rerr, io.EOF) {
		return errors.Wrap(rerr, "read body")
	}

	w.commit()
	defer func() { w.ended = true }()

	for {
		if n > 0 {
			if _, err := w.resp.Write(buf[:n]); err != nil {
				w.finish(errors.Wrap(err, "write body"))
				return nil
			}
		}

		switch {
		case errors.Is(rerr, io.EOF):
			return nil
		case rerr != nil:
			return errors.Wrap(rerr, "read body")
		}

		n, rerr = src.Read(buf)
	}
}

func (w *responseWriter) OnFinished(fn func(err error)) {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		fn(nil)
		return
	}

	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

func (w *responseWriter) isFinished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}

// claim reports whether the caller is the first to dispatch a request on the writer.
func (w *responseWriter) claim() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.claimed {
		return false
	}

	w.claimed = true
	return true
}

// finish runs the finished callbacks exactly once.
func (w *responseWriter) finish(err error) {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return
	}

	w.finished = true
	callbacks := w.callbacks
	w.callbacks = nil
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}

func (w *responseWriter) commit() {
	if w.sent {
		return
	}

	w.sent = true
	w.resp.WriteHeader(w.status)
}
