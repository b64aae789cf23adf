package bkoa

import (
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Config holds the application settings that can be read from the environment.
type Config struct {
	Env             string   `env:"APP_ENV"              envDefault:"development"`
	Proxy           bool     `env:"APP_PROXY"`
	SubdomainOffset int      `env:"APP_SUBDOMAIN_OFFSET" envDefault:"2"`
	ProxyIPHeader   string   `env:"APP_PROXY_IP_HEADER"  envDefault:"X-Forwarded-For"`
	MaxIPsCount     int      `env:"APP_MAX_IPS_COUNT"    envDefault:"0"`
	Keys            []string `env:"APP_KEYS"             envSeparator:","`
}

// ParseConfig reads the configuration from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}

	return cfg, nil
}

// Option configures an [Application].
type Option func(*Application)

// WithConfig applies all settings from cfg.
func WithConfig(cfg Config) Option {
	return func(a *Application) {
		a.env = cfg.Env
		a.proxy = cfg.Proxy
		a.subdomainOffset = cfg.SubdomainOffset
		a.proxyIPHeader = cfg.ProxyIPHeader
		a.maxIPsCount = cfg.MaxIPsCount
		a.setKeys(cfg.Keys)
	}
}

// WithEnv sets the environment label.
func WithEnv(env string) Option { return func(a *Application) { a.env = env } }

// WithProxy makes the application trust proxy headers such as X-Forwarded-Host.
func WithProxy(v bool) Option { return func(a *Application) { a.proxy = v } }

// WithSubdomainOffset sets how many labels of the hostname are skipped for subdomains.
func WithSubdomainOffset(n int) Option { return func(a *Application) { a.subdomainOffset = n } }

// WithProxyIPHeader sets the header that holds the client address chain.
func WithProxyIPHeader(name string) Option { return func(a *Application) { a.proxyIPHeader = name } }

// WithMaxIPsCount limits how many addresses of the proxy header are trusted, zero means all.
func WithMaxIPsCount(n int) Option { return func(a *Application) { a.maxIPsCount = n } }

// WithKeys sets the cookie signing keys. The first key signs.
func WithKeys(keys ...string) Option { return func(a *Application) { a.setKeys(keys) } }

// WithSilent disables the default error log.
func WithSilent(v bool) Option { return func(a *Application) { a.silent = v } }

// WithLogger sets the logger.
func WithLogger(l Logger) Option { return func(a *Application) { a.logger = l } }
