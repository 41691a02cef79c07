package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/prompts"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/textfilter"
)

// DefaultNarrationMaxTokens bounds one beat of story.
const DefaultNarrationMaxTokens = 512

// Narrator produces the next beat of story for an action.
type Narrator struct {
	gen       services.Generator
	codec     state.Codec
	rating    textfilter.Rating
	filter    *textfilter.Filter
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
}

// NewNarrator creates a narrator at the PG-13 rating. A nil codec selects JSON.
func NewNarrator(gen services.Generator, codec state.Codec, logger *slog.Logger) *Narrator {
	if codec == nil {
		codec = state.JSONCodec{}
	}
	return &Narrator{
		gen:       gen,
		codec:     codec,
		rating:    textfilter.RatingPG13,
		filter:    textfilter.New(),
		maxTokens: DefaultNarrationMaxTokens,
		logger:    logger,
	}
}

// WithContentRating sets the rating instruction and filtering.
func (n *Narrator) WithContentRating(r textfilter.Rating) *Narrator {
	n.rating = r
	return n
}

// WithTimeout sets the per-call deadline.
func (n *Narrator) WithTimeout(d time.Duration) *Narrator {
	n.timeout = d
	return n
}

// Rating returns the configured content rating.
func (n *Narrator) Rating() textfilter.Rating {
	return n.rating
}

// Narrate returns the story text for action given ws. An empty action asks for
// the opening scene. Terminal states get a fixed ending with no model call.
func (n *Narrator) Narrate(ctx context.Context, ws *state.WorldState, action, previous string) (string, error) {
	if ws == nil {
		return "", fmt.Errorf("%w: world state is nil", ErrNarrationFailed)
	}
	switch ws.Status {
	case state.StatusWon:
		return fmt.Sprintf(prompts.TerminalWonTemplate, ws.Objective), nil
	case state.StatusLost:
		return prompts.TerminalLostTemplate, nil
	}

	messages, err := prompts.New(n.codec).
		WithState(ws).
		WithAction(action).
		WithPreviousNarration(previous).
		WithContentRating(n.rating).
		BuildNarration()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNarrationFailed, err)
	}

	text, err := n.gen.Generate(ctx, messages, services.GenerateOptions{
		Temperature: services.NarrationTemperature,
		MaxTokens:   n.maxTokens,
		Timeout:     n.timeout,
	})
	if err != nil {
		n.logger.Error("Narration failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrNarrationFailed, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrNarrationFailed, services.ErrEmptyResponse)
	}
	if n.rating.Filtered() {
		text = n.filter.Clean(text)
	}
	return text, nil
}
