package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/tale-engine/internal/engine"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/textfilter"
)

// Supported LLM providers.
const (
	ProviderLocal     = "local"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config is loaded from defaults, then an optional YAML file, then the
// environment. Later sources win.
type Config struct {
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile     string `yaml:"log_file" env:"LOG_FILE"` // empty logs to stdout
	Port        string `yaml:"port" env:"PORT"`

	LLMProvider     string        `yaml:"llm_provider" env:"LLM_PROVIDER"`
	ModelName       string        `yaml:"model_name" env:"MODEL_NAME"` // remote model; empty uses the provider default
	LocalBaseURL    string        `yaml:"local_base_url" env:"LOCAL_BASE_URL"`
	LocalModelName  string        `yaml:"local_model_name" env:"LOCAL_MODEL_NAME"`
	LocalAPIKey     string        `yaml:"local_api_key" env:"LOCAL_API_KEY"`
	LocalFallback   bool          `yaml:"local_fallback" env:"LOCAL_FALLBACK"` // degrade to local when the remote provider fails
	AnthropicAPIKey string        `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	SnapshotPath string `yaml:"snapshot_path" env:"SNAPSHOT_PATH"`
	RedisURL     string `yaml:"redis_url" env:"REDIS_URL"` // when set, snapshots go to Redis
	RedisKey     string `yaml:"redis_key" env:"REDIS_KEY"`
	ScenariosDir string `yaml:"scenarios_dir" env:"SCENARIOS_DIR"`
	Scenario     string `yaml:"scenario" env:"SCENARIO"` // file in ScenariosDir

	ContentRating     string        `yaml:"content_rating" env:"CONTENT_RATING"`
	StateEncoding     string        `yaml:"state_encoding" env:"STATE_ENCODING"`
	ReconcileAttempts int           `yaml:"reconcile_attempts" env:"RECONCILE_ATTEMPTS"`
	ReconcileBackoff  time.Duration `yaml:"reconcile_backoff" env:"RECONCILE_BACKOFF"`
	Debug             bool          `yaml:"debug" env:"DEBUG"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Environment:       "development",
		LogLevel:          "info",
		Port:              "8080",
		LLMProvider:       ProviderLocal,
		LocalBaseURL:      "http://localhost:1234/v1",
		LocalModelName:    "gemma-3-4b-it",
		LocalFallback:     true,
		RequestTimeout:    60 * time.Second,
		SnapshotPath:      "game_state.json",
		RedisKey:          "tale:snapshot",
		ScenariosDir:      "data/scenarios",
		ContentRating:     string(textfilter.RatingPG13),
		StateEncoding:     "json",
		ReconcileAttempts: engine.DefaultReconcileAttempts,
		ReconcileBackoff:  engine.DefaultReconcileBackoff,
	}
}

// Load reads configuration. path may be empty; a named file that does not
// exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderLocal:
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported llm provider %q (supported: %s, %s, %s)",
			c.LLMProvider, ProviderLocal, ProviderAnthropic, ProviderGemini))
	}

	if _, err := textfilter.ParseRating(c.ContentRating); err != nil {
		errs = append(errs, err)
	}
	if _, err := state.NewCodec(c.StateEncoding); err != nil {
		errs = append(errs, err)
	}
	if c.ReconcileAttempts < 1 {
		errs = append(errs, fmt.Errorf("reconcile attempts must be at least 1, got %d", c.ReconcileAttempts))
	}
	if c.ReconcileBackoff < 0 {
		errs = append(errs, fmt.Errorf("reconcile backoff must not be negative, got %s", c.ReconcileBackoff))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	return parseLogLevel(c.LogLevel)
}

// Rating returns the parsed content rating, PG-13 if unreadable.
func (c *Config) Rating() textfilter.Rating {
	r, err := textfilter.ParseRating(c.ContentRating)
	if err != nil {
		return textfilter.RatingPG13
	}
	return r
}

// Codec returns the state encoding, JSON if unreadable.
func (c *Config) Codec() state.Codec {
	codec, err := state.NewCodec(c.StateEncoding)
	if err != nil {
		return state.JSONCodec{}
	}
	return codec
}

// IsRemote reports whether the primary provider is a hosted API.
func (c *Config) IsRemote() bool {
	return c.LLMProvider != ProviderLocal
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
