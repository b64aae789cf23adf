package bkoa

import (
	"log"
	"os"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUnhandledError(err error)
	LogTransportError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledError(err error) {
	l.Logger.Printf("bkoa: unhandled error: %+v", err)
}

func (l stdLogger) LogTransportError(err error) {
	l.Logger.Printf("bkoa: transport error: %s", err)
}

func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

func defaultLogger() Logger {
	return NewStdLogger(log.New(os.Stderr, "", log.LstdFlags))
}

type TestLogger struct {
	tb testing.TB

	NumLogUnhandledError int64
	NumLogTransportError int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledError, 1)
	l.tb.Logf("bkoa: unhandled error: %s", err)
}

func (l *TestLogger) LogTransportError(err error) {
	atomic.AddInt64(&l.NumLogTransportError, 1)
	l.tb.Logf("bkoa: transport error: %s", err)
}

var _ Logger = &TestLogger{}
