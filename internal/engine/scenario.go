package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/prompts"
	"github.com/jwebster45206/tale-engine/pkg/scenario"
)

// GeneratedScenarioName labels scenarios written by the model.
const GeneratedScenarioName = "Generated Adventure"

// ScenarioWriter asks the model for a fresh premise on restart.
type ScenarioWriter struct {
	gen     services.Generator
	timeout time.Duration
	logger  *slog.Logger
}

func NewScenarioWriter(gen services.Generator, logger *slog.Logger) *ScenarioWriter {
	return &ScenarioWriter{gen: gen, logger: logger}
}

// WithTimeout sets the per-call deadline.
func (w *ScenarioWriter) WithTimeout(d time.Duration) *ScenarioWriter {
	w.timeout = d
	return w
}

// Write returns a generated scenario, or the built-in one if generation fails.
func (w *ScenarioWriter) Write(ctx context.Context) scenario.Scenario {
	text, err := w.gen.Generate(ctx, prompts.New(nil).BuildScenario(), services.GenerateOptions{
		Temperature: services.NarrationTemperature,
		MaxTokens:   DefaultNarrationMaxTokens,
		Timeout:     w.timeout,
	})
	if err != nil {
		w.logger.Warn("Scenario generation failed, using built-in scenario", "error", err)
		return scenario.Default()
	}

	s := scenario.Scenario{Name: GeneratedScenarioName, Story: strings.TrimSpace(text)}
	if err := s.Validate(); err != nil {
		w.logger.Warn("Generated scenario is unusable, using built-in scenario", "error", err)
		return scenario.Default()
	}
	return s
}
