package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/tale-engine/pkg/chat"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/textfilter"
)

// Builder constructs the message arrays sent to a model backend using a
// fluent interface. It holds no game logic.
type Builder struct {
	codec     state.Codec
	ws        *state.WorldState
	action    string
	previous  string
	narration string
	rating    textfilter.Rating
	messages  []chat.ChatMessage
}

// New creates a builder that encodes state with codec. A nil codec selects JSON.
func New(codec state.Codec) *Builder {
	if codec == nil {
		codec = state.JSONCodec{}
	}
	return &Builder{
		codec:    codec,
		rating:   textfilter.RatingPG13,
		messages: make([]chat.ChatMessage, 0),
	}
}

// WithState sets the world state embedded in the prompt.
func (b *Builder) WithState(ws *state.WorldState) *Builder {
	b.ws = ws
	return b
}

// WithAction sets the player's action. Empty means the opening scene.
func (b *Builder) WithAction(action string) *Builder {
	b.action = action
	return b
}

// WithPreviousNarration sets the last narration for continuity.
func (b *Builder) WithPreviousNarration(previous string) *Builder {
	b.previous = previous
	return b
}

// WithNarration sets the narration being reconciled.
func (b *Builder) WithNarration(narration string) *Builder {
	b.narration = narration
	return b
}

// WithContentRating sets the narration content rating.
func (b *Builder) WithContentRating(r textfilter.Rating) *Builder {
	b.rating = r
	return b
}

// BuildNarration returns the messages for one narration call.
func (b *Builder) BuildNarration() ([]chat.ChatMessage, error) {
	if b.ws == nil {
		return nil, fmt.Errorf("world state is required")
	}
	b.messages = make([]chat.ChatMessage, 0, 4)

	var sb strings.Builder
	sb.WriteString(NarratorSystemPrompt)
	sb.WriteString("\nContent Rating: " + string(b.rating) + " (" + ContentRatingPrompt(b.rating) + ")")
	sb.WriteString("\n\nObjective: " + b.ws.Objective)
	b.messages = append(b.messages, chat.System(sb.String()))

	if err := b.addState(); err != nil {
		return nil, err
	}

	if b.previous != "" {
		b.messages = append(b.messages, chat.Agent(fmt.Sprintf(PreviousNarrationTemplate, b.previous)))
	}

	if strings.TrimSpace(b.action) == "" {
		b.messages = append(b.messages, chat.User(OpeningRequest))
	} else {
		b.messages = append(b.messages, chat.User(fmt.Sprintf(NarrationActionTemplate, b.action)))
	}
	return b.messages, nil
}

// BuildReconcile returns the messages for one reconciliation call.
func (b *Builder) BuildReconcile() ([]chat.ChatMessage, error) {
	if b.ws == nil {
		return nil, fmt.Errorf("world state is required")
	}
	b.messages = make([]chat.ChatMessage, 0, 3)
	b.messages = append(b.messages, chat.System(fmt.Sprintf(ReconcilePrompt, b.codec.Name(), SchemaDescription)))

	if err := b.addState(); err != nil {
		return nil, err
	}

	// Action and narration share one user turn.
	parts := []string{
		fmt.Sprintf(ReconcileActionTemplate, b.action),
		fmt.Sprintf(ReconcileNarrationTemplate, b.narration),
		ReconcileFinalReminder,
	}
	b.messages = append(b.messages, chat.User(strings.Join(parts, "\n\n")))
	return b.messages, nil
}

// BuildExtraction returns the messages that turn scenario text into an
// initial world state.
func (b *Builder) BuildExtraction(scenario string) ([]chat.ChatMessage, error) {
	blank, err := b.codec.Marshal(state.Blank())
	if err != nil {
		return nil, fmt.Errorf("error encoding template: %w", err)
	}
	b.messages = []chat.ChatMessage{
		chat.System(fmt.Sprintf(ExtractionPrompt, b.codec.Name(), SchemaDescription, blank, strings.TrimSpace(scenario))),
	}
	return b.messages, nil
}

// BuildScenario returns the messages that ask for a fresh scenario.
func (b *Builder) BuildScenario() []chat.ChatMessage {
	b.messages = []chat.ChatMessage{
		chat.System(NarratorSystemPrompt),
		chat.User(ScenarioPrompt),
	}
	return b.messages
}

func (b *Builder) addState() error {
	encoded, err := b.codec.Marshal(b.ws)
	if err != nil {
		return fmt.Errorf("error encoding world state: %w", err)
	}
	b.messages = append(b.messages, chat.System(fmt.Sprintf(StateTemplate, b.codec.Name(), b.codec.Name(), encoded)))
	return nil
}
