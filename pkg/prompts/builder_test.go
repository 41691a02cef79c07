package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/tale-engine/pkg/chat"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/textfilter"
)

func foxState() *state.WorldState {
	ws := state.Default()
	ws.Objective = "find the golden acorn"
	ws.Player.Name = "Fox"
	ws.Player.Location = "Meadow"
	ws.Locations["Meadow"] = state.Location{Explored: true, Adjacent: map[string]string{}}
	return ws
}

func TestNew(t *testing.T) {
	b := New(nil)
	if b == nil {
		t.Fatal("Expected builder to be created, got nil")
	}
	if b.codec.Name() != "json" {
		t.Errorf("Expected default json codec, got %s", b.codec.Name())
	}
	if b.rating != textfilter.RatingPG13 {
		t.Errorf("Expected default rating PG-13, got %s", b.rating)
	}
}

func TestBuilder_RequiresState(t *testing.T) {
	if _, err := New(nil).BuildNarration(); err == nil {
		t.Error("Expected error for missing world state")
	}
	if _, err := New(nil).BuildReconcile(); err == nil {
		t.Error("Expected error for missing world state")
	}
}

func TestBuilder_BuildNarration(t *testing.T) {
	tests := []struct {
		name         string
		action       string
		previous     string
		rating       textfilter.Rating
		wantLen      int
		wantLastPart string
		wantRating   string
	}{
		{
			name:         "opening scene",
			rating:       textfilter.RatingG,
			wantLen:      3,
			wantLastPart: OpeningRequest,
			wantRating:   ContentRatingG,
		},
		{
			name:         "action with previous narration",
			action:       `say "hello" to the owl`,
			previous:     "The owl blinks at you.",
			rating:       textfilter.RatingR,
			wantLen:      4,
			wantLastPart: `"say \"hello\" to the owl"`,
			wantRating:   ContentRatingR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := New(state.JSONCodec{}).
				WithState(foxState()).
				WithAction(tt.action).
				WithPreviousNarration(tt.previous).
				WithContentRating(tt.rating).
				BuildNarration()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(msgs) != tt.wantLen {
				t.Fatalf("Expected %d messages, got %d", tt.wantLen, len(msgs))
			}
			if msgs[0].Role != chat.ChatRoleSystem || !strings.Contains(msgs[0].Content, tt.wantRating) {
				t.Errorf("system prompt missing rating instruction: %q", msgs[0].Content)
			}
			if !strings.Contains(msgs[0].Content, "find the golden acorn") {
				t.Error("system prompt should include the objective")
			}
			if !strings.Contains(msgs[1].Content, `"location": "Meadow"`) {
				t.Errorf("state message should embed the world state: %q", msgs[1].Content)
			}
			last := msgs[len(msgs)-1]
			if last.Role != chat.ChatRoleUser || !strings.Contains(last.Content, tt.wantLastPart) {
				t.Errorf("last message = %+v, want it to contain %q", last, tt.wantLastPart)
			}
		})
	}
}

func TestBuilder_BuildReconcile(t *testing.T) {
	msgs, err := New(state.YAMLCodec{}).
		WithState(foxState()).
		WithAction("dig under the oak").
		WithNarration("You found the golden acorn tucked under a root!").
		BuildReconcile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}

	system := msgs[0].Content
	steps := []string{"1. POSSIBLE ACTIONS", "2. CLOCK", "3. LOCATION", "4. INVENTORY", "5. STATUS EFFECTS", "6. CHARACTERS", "7. GAME STATUS"}
	last := -1
	for _, step := range steps {
		idx := strings.Index(system, step)
		if idx <= last {
			t.Fatalf("checklist step %q missing or out of order", step)
		}
		last = idx
	}
	if !strings.Contains(system, "complete updated yaml world state") {
		t.Error("reconcile prompt should name the encoding")
	}
	if !strings.Contains(msgs[1].Content, "```yaml") {
		t.Errorf("state should be fenced as yaml: %q", msgs[1].Content)
	}
	turn := msgs[2]
	if turn.Role != chat.ChatRoleUser {
		t.Errorf("action and narration should be a user turn, got %s", turn.Role)
	}
	if !strings.HasPrefix(turn.Content, `ACTION (literal): "dig under the oak"`) {
		t.Errorf("unexpected action message %q", turn.Content)
	}
	if !strings.Contains(turn.Content, "NARRATION (literal):\nYou found the golden acorn tucked under a root!") {
		t.Errorf("narration should be passed through literally: %q", turn.Content)
	}
	if !strings.HasSuffix(turn.Content, ReconcileFinalReminder) {
		t.Error("reconcile turn should end with the reminder")
	}
}

func TestBuilder_BuildExtraction(t *testing.T) {
	msgs, err := New(nil).BuildExtraction("  A fox wakes up in a quiet meadow, objective: find the golden acorn  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	content := msgs[0].Content
	for _, want := range []string{"output ONLY a json document", `"status_effects"`, "SCENARIO\nA fox wakes up", "Not yet determined"} {
		if !strings.Contains(content, want) {
			t.Errorf("extraction prompt missing %q", want)
		}
	}
	if strings.Contains(content, "%!") {
		t.Errorf("extraction prompt has a formatting error: %q", content)
	}
}

func TestBuilder_BuildScenario(t *testing.T) {
	msgs := New(nil).BuildScenario()
	if len(msgs) != 2 || msgs[1].Content != ScenarioPrompt {
		t.Errorf("unexpected scenario messages: %+v", msgs)
	}
}

func TestContentRatingPrompt(t *testing.T) {
	tests := []struct {
		rating textfilter.Rating
		want   string
	}{
		{textfilter.RatingG, ContentRatingG},
		{textfilter.RatingPG, ContentRatingPG},
		{textfilter.RatingPG13, ContentRatingPG13},
		{textfilter.RatingR, ContentRatingR},
		{"", ContentRatingPG13},
	}
	for _, tt := range tests {
		if got := ContentRatingPrompt(tt.rating); got != tt.want {
			t.Errorf("ContentRatingPrompt(%q) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}
