package bserve

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/advdv/bkoa"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrNoKeys is returned when a key source yields no signing keys.
var ErrNoKeys = errors.New("bserve: key source returned no keys")

// SecretReader abstracts secret retrieval for testability and flexibility.
type SecretReader interface {
	GetSecretString(ctx context.Context, secretID string) (string, error)
}

// AWSSecretReader implements SecretReader using AWS Secrets Manager caching client.
type AWSSecretReader struct {
	cache *secretcache.Cache
}

// NewAWSSecretReader creates a new AWSSecretReader using the provided AWS config.
func NewAWSSecretReader(cfg aws.Config) (*AWSSecretReader, error) {
	client := secretsmanager.NewFromConfig(cfg)

	cache, err := secretcache.New(func(c *secretcache.Cache) { c.Client = client })
	if err != nil {
		return nil, errors.Wrap(err, "failed to create secret cache")
	}

	return &AWSSecretReader{cache: cache}, nil
}

// GetSecretString retrieves a secret value from AWS Secrets Manager with caching.
func (r *AWSSecretReader) GetSecretString(ctx context.Context, secretID string) (string, error) {
	secret, err := r.cache.GetSecretStringWithContext(ctx, secretID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get secret %q", secretID)
	}

	return secret, nil
}

// KeySource provides the current cookie signing keys, primary key first.
type KeySource interface {
	Keys(ctx context.Context) ([]string, error)
}

// SecretsManagerKeys reads signing keys from a secret. The secret, or the value at Path when it is
// set, is either a JSON array of strings or a comma separated list.
type SecretsManagerKeys struct {
	Reader   SecretReader
	SecretID string
	Path     string
}

// Keys implements KeySource.
func (s SecretsManagerKeys) Keys(ctx context.Context) ([]string, error) {
	secret, err := s.Reader.GetSecretString(ctx, s.SecretID)
	if err != nil {
		return nil, err
	}

	result := gjson.Parse(secret)
	if s.Path != "" {
		if !gjson.Valid(secret) {
			return nil, errors.Newf("secret %q is not valid JSON", s.SecretID)
		}

		result = gjson.Get(secret, s.Path)
		if !result.Exists() {
			return nil, errors.Newf("secret path %q not found in secret %q", s.Path, s.SecretID)
		}
	}

	var keys []string
	if result.IsArray() {
		keys = lo.Map(result.Array(), func(r gjson.Result, _ int) string { return r.String() })
	} else if s.Path != "" {
		keys = strings.Split(result.String(), ",")
	} else {
		keys = strings.Split(secret, ",")
	}

	return cleanKeys(keys)
}

// GetParameterAPI is the part of the SSM client that ParameterKeys uses.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (
		*ssm.GetParameterOutput, error)
}

// ParameterKeys reads signing keys from an SSM parameter. StringList, String and SecureString
// parameters all hold a comma separated list.
type ParameterKeys struct {
	Client GetParameterAPI
	Name   string
}

// Keys implements KeySource.
func (p ParameterKeys) Keys(ctx context.Context) ([]string, error) {
	out, err := p.Client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(p.Name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get parameter %q", p.Name)
	}

	if out.Parameter == nil {
		return nil, errors.Wrapf(ErrNoKeys, "parameter %q", p.Name)
	}

	return cleanKeys(strings.Split(aws.ToString(out.Parameter.Value), ","))
}

func cleanKeys(keys []string) ([]string, error) {
	keys = lo.Compact(lo.Map(keys, func(k string, _ int) string { return strings.TrimSpace(k) }))
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	return keys, nil
}

// KeyRotator periodically replaces the signing keys of an application with the keys of a source.
type KeyRotator struct {
	app    *bkoa.Application
	source KeySource
	every  time.Duration
	logs   *zap.Logger

	stop chan struct{}
	done sync.WaitGroup
}

// NewKeyRotator creates a rotator that refreshes every interval. A zero interval only
// loads the keys once.
func NewKeyRotator(app *bkoa.Application, source KeySource, every time.Duration, logs *zap.Logger) *KeyRotator {
	return &KeyRotator{
		app:    app,
		source: source,
		every:  every,
		logs:   logs.Named("keys"),
		stop:   make(chan struct{}),
	}
}

// Refresh loads the keys from the source and installs them. On failure the current keys are kept.
func (r *KeyRotator) Refresh(ctx context.Context) error {
	keys, err := r.source.Keys(ctx)
	if err != nil {
		return errors.Wrap(err, "refresh signing keys")
	}

	r.app.SetKeys(keys...)

	return nil
}

// Start loads the keys and starts the refresh loop. It fails when the keys cannot be loaded.
func (r *KeyRotator) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return err
	}

	if r.every <= 0 {
		return nil
	}

	r.done.Add(1)
	go r.loop()

	return nil
}

// Stop ends the refresh loop.
func (r *KeyRotator) Stop(context.Context) error {
	close(r.stop)
	r.done.Wait()

	return nil
}

func (r *KeyRotator) loop() {
	defer r.done.Done()

	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), awsConfigTimeout)
			if err := r.Refresh(ctx); err != nil {
				r.logs.Error("failed to rotate signing keys", zap.Error(err))
			}
			cancel()
		}
	}
}

// NewKeySource selects the key source configured by the environment. It returns nil
// when the application keys are static.
func NewKeySource(env Environment, cfg aws.Config, reader SecretReader) KeySource {
	switch {
	case env.keysSecretID() != "":
		return SecretsManagerKeys{Reader: reader, SecretID: env.keysSecretID(), Path: env.keysSecretPath()}
	case env.keysParameter() != "":
		return ParameterKeys{Client: ssm.NewFromConfig(cfg), Name: env.keysParameter()}
	default:
		return nil
	}
}

// startKeyRotation hooks the rotator into the lifecycle when a key source is configured.
func startKeyRotation(lc fx.Lifecycle, env Environment, app *bkoa.Application, source KeySource, logs *zap.Logger) {
	if source == nil {
		return
	}

	rotator := NewKeyRotator(app, source, env.keysRefresh(), logs)
	lc.Append(fx.Hook{OnStart: rotator.Start, OnStop: rotator.Stop})
}
