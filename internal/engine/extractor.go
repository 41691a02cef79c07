package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/prompts"
	"github.com/jwebster45206/tale-engine/pkg/state"
)

// DefaultStateMaxTokens bounds extraction and reconcile replies.
const DefaultStateMaxTokens = 2048

// Extractor reads a scenario into an initial world state.
type Extractor struct {
	gen     services.Generator
	codec   state.Codec
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor creates an extractor. A nil codec selects JSON.
func NewExtractor(gen services.Generator, codec state.Codec, logger *slog.Logger) *Extractor {
	if codec == nil {
		codec = state.JSONCodec{}
	}
	return &Extractor{gen: gen, codec: codec, logger: logger}
}

// WithTimeout sets the per-call deadline.
func (e *Extractor) WithTimeout(d time.Duration) *Extractor {
	e.timeout = d
	return e
}

// Extract asks the model for the starting state of scenario. The result is
// always in play. Errors wrap ErrExtractionParse.
func (e *Extractor) Extract(ctx context.Context, scenario string) (*state.WorldState, error) {
	messages, err := prompts.New(e.codec).BuildExtraction(scenario)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionParse, err)
	}

	text, err := e.gen.Generate(ctx, messages, services.GenerateOptions{
		Temperature: services.StateTemperature,
		MaxTokens:   DefaultStateMaxTokens,
		Timeout:     e.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionParse, err)
	}

	ws, err := e.codec.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionParse, err)
	}
	out := state.Normalize(ws)
	if out.Status != state.StatusPlaying {
		e.logger.Warn("Extracted state was already over, starting in play", "status", out.Status)
		out.Status = state.StatusPlaying
	}
	return out, nil
}

// ExtractInitialState never fails: anything that goes wrong yields the
// default state.
func (e *Extractor) ExtractInitialState(ctx context.Context, scenario string) *state.WorldState {
	ws, err := e.Extract(ctx, scenario)
	if err != nil {
		e.logger.Warn("Using default world state", "error", err)
		return state.Default()
	}
	e.logger.Debug("Initial world state extracted",
		"objective", ws.Objective,
		"location", ws.Player.Location,
		"locations", len(ws.Locations),
		"characters", len(ws.Characters))
	return ws
}
