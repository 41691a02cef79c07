package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/tale-engine/internal/config"
	"github.com/jwebster45206/tale-engine/internal/handlers"
	"github.com/jwebster45206/tale-engine/internal/logger"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve one game over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// newMux registers the HTTP routes.
func newMux(health, game, scenarios http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/v1/state", game)
	mux.Handle("/v1/turn", game)
	mux.Handle("/v1/restart", game)
	mux.Handle("/v1/scenarios", scenarios)
	mux.Handle("/v1/scenarios/", scenarios)
	return mux
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.Setup(cfg)
	log.Info("Starting Tale Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	startCtx, startCancel := context.WithTimeout(ctx, 2*time.Minute)
	defer startCancel()

	a, err := newApp(startCtx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	sc, err := a.startScenario(startCtx)
	if err != nil {
		return err
	}

	// The opening may take a few model calls; use the request timeout per
	// call rather than the startup deadline.
	sess := a.newSession()
	reply, err := sess.Start(ctx, sc)
	if err != nil {
		log.Error("Failed to start game", "error", err)
		return err
	}
	log.Info("Game ready", "session_id", sess.ID().String(), "opening", reply.Text)

	mux := newMux(
		handlers.NewHealthHandler(a.store, a.gateway, log),
		handlers.NewGameHandler(sess, a.library, log),
		handlers.NewScenarioHandler(log, a.library),
	)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Turns run several model calls; no WriteTimeout.
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err, ok := <-serverErr:
		if ok {
			log.Error("Server failed to start", "error", err)
			return err
		}
	}

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		return err
	}

	log.Info("Server exited")
	return nil
}
