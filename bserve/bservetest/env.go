package bservetest

import (
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [bserve.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets all [bserve.BaseEnvironment] env vars to sensible test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BKOA_SERVICE_NAME: "test"
//   - BKOA_READINESS_CHECK_PATH: "/health"
//   - BKOA_OTEL_EXPORTER: "none"
//   - BKOA_ERROR_STATUS_CODES: "500-599"
//   - AWS_REGION: "us-east-1"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
//
// Use the returned [Env] to override individual values:
//
//	bservetest.SetBaseEnv(t, 18085).ServiceName("items").RequestTimeout("1s")
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BKOA_PORT", strconv.Itoa(port))
	t.Setenv("BKOA_SERVICE_NAME", "test")
	t.Setenv("BKOA_READINESS_CHECK_PATH", "/health")
	t.Setenv("BKOA_OTEL_EXPORTER", "none")
	t.Setenv("BKOA_ERROR_STATUS_CODES", "500-599")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	return &Env{t: t}
}

// ServiceName overrides BKOA_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BKOA_SERVICE_NAME", name)
	return e
}

// ReadinessCheckPath overrides BKOA_READINESS_CHECK_PATH.
func (e *Env) ReadinessCheckPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BKOA_READINESS_CHECK_PATH", path)
	return e
}

// ErrorStatusCodes overrides BKOA_ERROR_STATUS_CODES.
func (e *Env) ErrorStatusCodes(expr string) *Env {
	e.t.Helper()
	e.t.Setenv("BKOA_ERROR_STATUS_CODES", expr)
	return e
}

// RequestTimeout overrides BKOA_REQUEST_TIMEOUT.
func (e *Env) RequestTimeout(d string) *Env {
	e.t.Helper()
	e.t.Setenv("BKOA_REQUEST_TIMEOUT", d)
	return e
}

// PrimaryRegion overrides BKOA_PRIMARY_REGION.
func (e *Env) PrimaryRegion(region string) *Env {
	e.t.Helper()
	e.t.Setenv("BKOA_PRIMARY_REGION", region)
	return e
}

// Keys overrides APP_KEYS.
func (e *Env) Keys(keys string) *Env {
	e.t.Helper()
	e.t.Setenv("APP_KEYS", keys)
	return e
}
