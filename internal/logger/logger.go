package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/tale-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return setup(cfg, os.Stdout)
}

// SetupFile is Setup writing to cfg.LogFile, for the terminal UI where
// stdout belongs to the game. With no log file configured, logs are
// discarded. The returned closer releases the file.
func SetupFile(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return setup(cfg, io.Discard), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return setup(cfg, f), f, nil
}

func setup(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}
