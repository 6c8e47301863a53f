package coursegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/coursemaster/coursegate/admintoken"
	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/credential"
	"github.com/coursemaster/coursegate/gate"
	"github.com/coursemaster/coursegate/internal/audit"
	"github.com/coursemaster/coursegate/internal/rate"
	"github.com/coursemaster/coursegate/jwt"
)

// Builder assembles an Engine. A Builder can be used once.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	logger     *slog.Logger
	auditSink  AuditSink
	httpClient *http.Client
	provider   credential.Provider
	clock      func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by the Redis credential backend and the passkey
// throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient replaces the client used to reach the backend. The configured timeout
// still applies.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithCredentialProvider overrides Config.Credentials.
func (b *Builder) WithCredentialProvider(p credential.Provider) *Builder {
	b.provider = p
	return b
}

// WithClock replaces time.Now for token expiry and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	// -------- CREDENTIALS --------
	provider := b.provider
	if provider == nil {
		switch cfg.Credentials.Backend {
		case BackendFile:
			provider = credential.NewFileProvider(filepath.Clean(cfg.Credentials.Dir))
		case BackendRedis:
			if b.redis == nil {
				return nil, errors.New("redis credential backend requires a redis client")
			}
			provider = credential.NewRedisProvider(b.redis, cfg.Credentials.RedisPrefix, cfg.Credentials.RedisTTL)
		default:
			provider = credential.NewMemoryProvider()
		}
	}

	// -------- BACKEND --------
	opts := []api.Option{api.WithHTTPClient(b.httpClient), api.WithTimeout(cfg.API.Timeout)}
	if cfg.API.UserAgent != "" {
		opts = append(opts, api.WithUserAgent(cfg.API.UserAgent))
	}
	client, err := api.NewClient(cfg.API.BaseURL, opts...)
	if err != nil {
		return nil, err
	}

	// -------- ADMIN TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.AdminToken.SigningMethod),
		VerifyKey:     cloneBytes(cfg.AdminToken.VerifyKey),
		Issuer:        cfg.AdminToken.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("admin token verifier: %w", err)
	}
	format, _ := admintoken.ParseFormat(cfg.AdminToken.Format)
	decoder, err := admintoken.NewDecoder(format, jm)
	if err != nil {
		return nil, err
	}

	g, err := gate.New(cfg.Gate, decoder, gate.WithClock(now))
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		logger:   logger,
		client:   client,
		provider: provider,
		gate:     g,
		decoder:  decoder,
		now:      now,
	}
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	if b.redis != nil && cfg.Passkey.MaxAttempts > 0 {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:      cfg.Credentials.RedisPrefix,
			MaxAttempts: cfg.Passkey.MaxAttempts,
			Cooldown:    cfg.Passkey.Cooldown,
		})
	}

	// -------- LISTING --------
	tag, _ := language.Parse(cfg.Listing.Language)
	engine.pipeline = course.NewPipeline(
		timedSource{client: client, metrics: engine.metrics},
		course.WithLimits(course.Limits{
			DefaultLimit: cfg.Listing.DefaultLimit,
			MaxLimit:     cfg.Listing.MaxLimit,
		}),
		course.WithLanguage(tag),
		course.WithLogger(logger),
		course.WithDegradeHook(engine.onDegrade),
	)

	b.built = true
	return engine, nil
}

// timedSource feeds backend read latency into the metrics histogram.
type timedSource struct {
	client  *api.Client
	metrics *Metrics
}

func (s timedSource) ListCourses(ctx context.Context, params url.Values) (course.Page, error) {
	start := time.Now()
	defer func() { s.metrics.Observe(MetricBackendLatency, time.Since(start)) }()
	return s.client.ListCourses(ctx, params)
}

func (s timedSource) ActiveCategories(ctx context.Context) ([]course.Category, error) {
	start := time.Now()
	defer func() { s.metrics.Observe(MetricBackendLatency, time.Since(start)) }()
	return s.client.ActiveCategories(ctx)
}
