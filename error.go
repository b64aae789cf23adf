package bkoa

import (
	"maps"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Code is an error code that mirrors the http status codes. It can be used to create errors to pass around across
// middleware layers to handle errors structurally.
type Code int

const (
	CodeUnknown                      Code = 0
	CodeBadRequest                   Code = http.StatusBadRequest                   // RFC 9110, 15.5.1
	CodeUnauthorized                 Code = http.StatusUnauthorized                 // RFC 9110, 15.5.2
	CodePaymentRequired              Code = http.StatusPaymentRequired              // RFC 9110, 15.5.3
	CodeForbidden                    Code = http.StatusForbidden                    // RFC 9110, 15.5.4
	CodeNotFound                     Code = http.StatusNotFound                     // RFC 9110, 15.5.5
	CodeMethodNotAllowed             Code = http.StatusMethodNotAllowed             // RFC 9110, 15.5.6
	CodeNotAcceptable                Code = http.StatusNotAcceptable                // RFC 9110, 15.5.7
	CodeProxyAuthRequired            Code = http.StatusProxyAuthRequired            // RFC 9110, 15.5.8
	CodeRequestTimeout               Code = http.StatusRequestTimeout               // RFC 9110, 15.5.9
	CodeConflict                     Code = http.StatusConflict                     // RFC 9110, 15.5.10
	CodeGone                         Code = http.StatusGone                         // RFC 9110, 15.5.11
	CodeLengthRequired               Code = http.StatusLengthRequired               // RFC 9110, 15.5.12
	CodePreconditionFailed           Code = http.StatusPreconditionFailed           // RFC 9110, 15.5.13
	CodeRequestEntityTooLarge        Code = http.StatusRequestEntityTooLarge        // RFC 9110, 15.5.14
	CodeRequestURITooLong            Code = http.StatusRequestURITooLong            // RFC 9110, 15.5.15
	CodeUnsupportedMediaType         Code = http.StatusUnsupportedMediaType         // RFC 9110, 15.5.16
	CodeRequestedRangeNotSatisfiable Code = http.StatusRequestedRangeNotSatisfiable // RFC 9110, 15.5.17
	CodeExpectationFailed            Code = http.StatusExpectationFailed            // RFC 9110, 15.5.18
	CodeTeapot                       Code = http.StatusTeapot                       // RFC 9110, 15.5.19 (Unused)
	CodeMisdirectedRequest           Code = http.StatusMisdirectedRequest           // RFC 9110, 15.5.20
	CodeUnprocessableEntity          Code = http.StatusUnprocessableEntity          // RFC 9110, 15.5.21
	CodeLocked                       Code = http.StatusLocked                       // RFC 4918, 11.3
	CodeFailedDependency             Code = http.StatusFailedDependency             // RFC 4918, 11.4
	CodeTooEarly                     Code = http.StatusTooEarly                     // RFC 8470, 5.2.
	CodeUpgradeRequired              Code = http.StatusUpgradeRequired              // RFC 9110, 15.5.22
	CodePreconditionRequired         Code = http.StatusPreconditionRequired         // RFC 6585, 3
	CodeTooManyRequests              Code = http.StatusTooManyRequests              // RFC 6585, 4
	CodeRequestHeaderFieldsTooLarge  Code = http.StatusRequestHeaderFieldsTooLarge  // RFC 6585, 5
	CodeUnavailableForLegalReasons   Code = http.StatusUnavailableForLegalReasons   // RFC 7725, 3

	CodeInternalServerError           Code = http.StatusInternalServerError           // RFC 9110, 15.6.1
	CodeNotImplemented                Code = http.StatusNotImplemented                // RFC 9110, 15.6.2
	CodeBadGateway                    Code = http.StatusBadGateway                    // RFC 9110, 15.6.3
	CodeServiceUnavailable            Code = http.StatusServiceUnavailable            // RFC 9110, 15.6.4
	CodeGatewayTimeout                Code = http.StatusGatewayTimeout                // RFC 9110, 15.6.5
	CodeHTTPVersionNotSupported       Code = http.StatusHTTPVersionNotSupported       // RFC 9110, 15.6.6
	CodeVariantAlsoNegotiates         Code = http.StatusVariantAlsoNegotiates         // RFC 2295, 8.1
	CodeInsufficientStorage           Code = http.StatusInsufficientStorage           // RFC 4918, 11.5
	CodeLoopDetected                  Code = http.StatusLoopDetected                  // RFC 5842, 7.2
	CodeNotExtended                   Code = http.StatusNotExtended                   // RFC 2774, 7
	CodeNetworkAuthenticationRequired Code = http.StatusNetworkAuthenticationRequired // RFC 6585, 6
)

var (
	// ErrHeaderSent marks errors that were handled after the response headers
	// had already been written. Check for it with [HeaderSent].
	ErrHeaderSent = errors.New("headers already sent")

	// ErrInvalidMiddleware is returned when something that is not a middleware is used as one.
	ErrInvalidMiddleware = errors.New("middleware must be a function!")

	// ErrNextCalledTwice is returned when a middleware calls its next function more than once.
	ErrNextCalledTwice = errors.New("next() called multiple times")
)

// Error describes an http error. It carries the status code, the message that
// may be shown to the client, whether showing it is allowed at all, headers to
// send along and arbitrary extra properties.
type Error struct {
	code    Code
	msg     string
	expose  bool
	headers http.Header
	props   map[string]any
	cause   error
}

// NewError inits a new error given the error code. The message of the
// underlying error is exposed to clients for 4xx codes.
func NewError(c Code, underlying error) *Error {
	e := &Error{code: c, cause: underlying, expose: c < 500}
	if underlying != nil {
		e.msg = underlying.Error()
	} else {
		e.msg = http.StatusText(int(c))
	}

	return e
}

func (e *Error) Code() Code { return e.code }

// Status returns the http status code of the error.
func (e *Error) Status() int { return int(e.code) }

// Message returns the message as it would be shown to the client.
func (e *Error) Message() string { return e.msg }

// Expose reports whether the message may be shown to the client.
func (e *Error) Expose() bool { return e.expose }

// Headers returns the headers that are sent along with the error response.
func (e *Error) Headers() http.Header { return e.headers }

// Props returns the extra properties attached to the error.
func (e *Error) Props() map[string]any { return e.props }

// Prop returns a single extra property.
func (e *Error) Prop(name string) (any, bool) {
	v, ok := e.props[name]
	return v, ok
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	status := http.StatusText(int(e.Code()))
	if status == "" {
		status = "Unknown"
	}

	if e.msg == "" || e.msg == status {
		return status
	}

	return status + ": " + e.msg
}

type argKind int

const (
	argStatus argKind = iota + 1
	argMessage
	argError
	argProps
	argHeaders
)

// ErrorArg is one argument to [NewHTTPError], [Context.Throw] and [Context.Assert].
// Construct it with [ByStatus], [ByMessage], [ByError], [WithProps] or [WithHeaders].
type ErrorArg struct {
	kind    argKind
	status  int
	message string
	err     error
	props   map[string]any
	headers http.Header
}

// ByStatus sets the status code of the error.
func ByStatus(code int) ErrorArg { return ErrorArg{kind: argStatus, status: code} }

// ByMessage sets the message of the error. It is ignored when the error wraps another error.
func ByMessage(msg string) ErrorArg { return ErrorArg{kind: argMessage, message: msg} }

// ByError wraps err. A status carried by err takes precedence over an earlier [ByStatus].
func ByError(err error) ErrorArg { return ErrorArg{kind: argError, err: err} }

// WithProps attaches extra properties. The "expose" and "headers" properties
// configure the error itself, "status" and "statusCode" are ignored.
func WithProps(props map[string]any) ErrorArg { return ErrorArg{kind: argProps, props: props} }

// WithHeaders attaches headers that are sent with the error response.
func WithHeaders(h http.Header) ErrorArg { return ErrorArg{kind: argHeaders, headers: h} }

// NewHTTPError resolves args into a single error. Arguments are applied in
// order. A status that does not describe a known or 4xx/5xx code becomes 500.
// When the wrapped error is already an [*Error] with the resolved status it is
// reused and the properties are merged into it.
func NewHTTPError(args ...ErrorArg) *Error {
	var (
		status  int
		msg     string
		cause   error
		props   map[string]any
		headers http.Header
	)

	for _, arg := range args {
		switch arg.kind {
		case argStatus:
			status = arg.status
		case argMessage:
			msg = arg.message
		case argError:
			if arg.err == nil {
				continue
			}

			cause = arg.err
			if s := StatusOf(arg.err); s != 0 {
				status = s
			}
		case argProps:
			props = lo.Assign(props, arg.props)
		case argHeaders:
			headers = mergeHeaders(headers, arg.headers)
		}
	}

	if !validErrorStatus(status) {
		status = http.StatusInternalServerError
	}

	e, reused := cause.(*Error)
	if !reused || e.Status() != status {
		e = &Error{code: Code(status), expose: status < 500, cause: cause}
		switch {
		case reused:
			e.msg = cause.(*Error).msg
		case cause != nil:
			e.msg = cause.Error()
		case msg != "":
			e.msg = msg
		default:
			e.msg = http.StatusText(status)
		}

		e.headers = mergeHeaders(nil, HeadersOf(cause))
	}

	e.headers = mergeHeaders(e.headers, headers)
	for key, val := range props {
		switch key {
		case "status", "statusCode":
		case "expose":
			if b, ok := val.(bool); ok {
				e.expose = b
			}
		case "headers":
			e.headers = mergeHeaders(e.headers, toHeader(val))
		default:
			if e.props == nil {
				e.props = map[string]any{}
			}
			e.props[key] = val
		}
	}

	return e
}

func validErrorStatus(code int) bool {
	return http.StatusText(code) != "" || (code >= 400 && code < 600)
}

func mergeHeaders(dst, src http.Header) http.Header {
	if len(src) == 0 {
		return dst
	}

	if dst == nil {
		dst = http.Header{}
	}

	maps.Copy(dst, src.Clone())
	return dst
}

func toHeader(v any) http.Header {
	switch h := v.(type) {
	case http.Header:
		return h
	case map[string]string:
		out := http.Header{}
		for k, v := range h {
			out.Set(k, v)
		}
		return out
	case map[string][]string:
		return http.Header(h)
	default:
		return nil
	}
}

// StatusOf returns the http status of err. Any error in the chain with a
// Status() or StatusCode() method provides it. Zero means no status.
func StatusOf(err error) int {
	var s interface{ Status() int }
	if errors.As(err, &s) {
		return s.Status()
	}

	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	return 0
}

// ExposeOf reports whether the error message is safe to show to the client.
func ExposeOf(err error) bool {
	var e interface{ Expose() bool }
	if errors.As(err, &e) {
		return e.Expose()
	}

	return false
}

// HeadersOf returns the headers attached to the error, if any.
func HeadersOf(err error) http.Header {
	var e interface{ Headers() http.Header }
	if errors.As(err, &e) {
		return e.Headers()
	}

	return nil
}

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	if httpErr, ok := asError(err); ok {
		return httpErr.Code()
	}
	return CodeUnknown
}

// HeaderSent reports whether err was handled after the response headers were sent.
func HeaderSent(err error) bool {
	return errors.Is(err, ErrHeaderSent)
}

// asError uses errors.As to unwrap any error and look for an *Error.
func asError(err error) (*Error, bool) {
	var httpErr *Error
	ok := errors.As(err, &httpErr)
	return httpErr, ok
}
