package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/coursemaster/coursegate"
	"github.com/coursemaster/coursegate/internal/settings"
)

// app is a built engine plus the resources it holds.
type app struct {
	settings *settings.Settings
	engine   *coursegate.Engine
	logger   *slog.Logger
	closers  []func()
}

func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// clientContext scopes ctx to the --profile credentials.
func (a *app) clientContext(ctx context.Context, opts *globalOptions) context.Context {
	return coursegate.WithProfile(ctx, opts.profile)
}

// loadApp reads settings and builds the engine. Client commands run one process per call, so
// the in-memory credential backend is replaced by the file backend.
func loadApp(opts *globalOptions, stderr io.Writer, client bool) (*app, error) {
	s, err := settings.Load(settings.Options{ConfigFile: opts.configPath, EnvFile: opts.envFile})
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		s.Log.Level = opts.logLevel
	}
	if client && s.Credentials.Backend == coursegate.BackendMemory {
		s.Credentials.Backend = coursegate.BackendFile
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	level, _ := s.LogLevel()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := s.EngineConfig()
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Lint() {
		logger.Warn("coursegate: config", "code", w.Code, "message", w.Message)
	}

	a := &app{settings: s, logger: logger}
	builder := coursegate.New().WithConfig(cfg).WithLogger(logger)

	if s.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		builder = builder.WithRedis(rdb)
	}

	if cfg.Audit.Enabled {
		var out io.Writer = stderr
		if s.Audit.Path != "" {
			f, err := os.OpenFile(s.Audit.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("open audit log: %w", err)
			}
			a.closers = append(a.closers, func() { _ = f.Close() })
			out = f
		}
		builder = builder.WithAuditSink(coursegate.NewJSONWriterSink(out))
	}

	engine, err := builder.Build()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}
