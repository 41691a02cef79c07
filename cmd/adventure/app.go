package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jwebster45206/tale-engine/internal/config"
	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/internal/session"
	snapshots "github.com/jwebster45206/tale-engine/internal/storage"
	"github.com/jwebster45206/tale-engine/pkg/scenario"
	"github.com/jwebster45206/tale-engine/pkg/storage"
)

const (
	redisConnectAttempts = 10
	redisConnectDelay    = time.Second
)

// app holds the wiring shared by play and serve.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	gateway *services.Gateway
	store   storage.Snapshotter
	library *snapshots.DirScenarios
	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		library: snapshots.NewDirScenarios(cfg.ScenariosDir, logger),
	}

	primary, fallback, closers, err := buildBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closers...)
	a.gateway = services.NewGateway(primary, fallback, logger)

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store)

	logger.Info("Backends ready",
		"provider", cfg.LLMProvider,
		"primary", primary.Name(),
		"fallback", backendName(fallback))
	return a, nil
}

// buildBackends returns the configured primary and, for a remote primary
// with local fallback enabled, the local backend.
func buildBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (primary, fallback services.Backend, closers []io.Closer, err error) {
	local := services.NewOpenAIService(cfg.LocalBaseURL, cfg.LocalAPIKey, cfg.LocalModelName, cfg.RequestTimeout, logger)

	switch cfg.LLMProvider {
	case config.ProviderLocal:
		return local, nil, nil, nil
	case config.ProviderAnthropic:
		primary = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.RequestTimeout, logger)
	case config.ProviderGemini:
		gemini, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		primary = gemini
		closers = append(closers, gemini)
	default:
		return nil, nil, nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}

	if cfg.LocalFallback {
		fallback = local
	}
	return primary, fallback, closers, nil
}

// buildStore picks Redis when a URL is configured and the snapshot file
// otherwise.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Snapshotter, error) {
	if cfg.RedisURL == "" {
		logger.Info("Using file snapshots", "path", cfg.SnapshotPath)
		return snapshots.NewFileStorage(cfg.SnapshotPath, logger), nil
	}

	redis, err := snapshots.NewRedisStorage(cfg.RedisURL, cfg.RedisKey, logger)
	if err != nil {
		return nil, err
	}
	if err := redis.WaitForConnection(ctx, redisConnectAttempts, redisConnectDelay); err != nil {
		_ = redis.Close()
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	logger.Info("Using Redis snapshots", "key", cfg.RedisKey)
	return redis, nil
}

// newSession creates a session with the configured options.
func (a *app) newSession() *session.Session {
	return session.New(a.gateway, a.store, session.Options{
		Debug:             a.cfg.Debug,
		Rating:            a.cfg.Rating(),
		Codec:             a.cfg.Codec(),
		ReconcileAttempts: a.cfg.ReconcileAttempts,
		ReconcileBackoff:  a.cfg.ReconcileBackoff,
		CallTimeout:       a.cfg.RequestTimeout,
	}, a.logger)
}

// startScenario loads the configured scenario file, or returns nil for the
// built-in one.
func (a *app) startScenario(ctx context.Context) (*scenario.Scenario, error) {
	if a.cfg.Scenario == "" {
		return nil, nil
	}
	sc, err := a.library.GetScenario(ctx, a.cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	return sc, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("Error closing resource", "error", err)
		}
	}
	a.closers = nil
}

func backendName(b services.Backend) string {
	if b == nil {
		return "none"
	}
	return b.Name()
}
