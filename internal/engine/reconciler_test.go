package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/prompts"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(mock *services.MockLLMAPI) *Reconciler {
	return NewReconciler(mock, nil, discardLogger()).WithRetry(3, time.Millisecond)
}

func TestReconcile_GoldenAcornWins(t *testing.T) {
	current := foxState(t)
	reply := strings.NewReplacer(
		`"status": "playing"`, `"status": "won"`,
		`"clock": "Day 1, 08:00"`, `"clock": "Day 1, 08:20"`,
		`"inventory": [{"name": "Feather", "description": "a soft grey feather"}]`,
		`"inventory": [{"name": "Feather"}, {"name": "Golden Acorn", "description": "it gleams"}]`,
	).Replace(foxJSON)
	mock := services.NewMockLLMAPI("Here is the updated state:\n```json\n" + reply + "\n```")

	next, err := newTestReconciler(mock).Reconcile(context.Background(), current,
		"dig under the roots", "You found the golden acorn tucked under a root!")
	require.NoError(t, err)

	assert.Equal(t, state.StatusWon, next.Status)
	assert.Equal(t, "Day 1, 08:20", next.Clock)
	assert.Len(t, next.Player.Inventory, 2)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, services.StateTemperature, calls[0].Options.Temperature)
	msgs := calls[0].Messages
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].Content, "7. GAME STATUS")
	assert.Contains(t, msgs[2].Content, `"dig under the roots"`)
	assert.Contains(t, msgs[2].Content, "You found the golden acorn tucked under a root!")
	assert.True(t, strings.HasSuffix(msgs[2].Content, prompts.ReconcileFinalReminder))
}

func TestReconcile_ClockAlwaysAdvances(t *testing.T) {
	// The model keeps echoing the same clock.
	mock := services.NewMockLLMAPI(foxJSON, foxJSON)
	r := newTestReconciler(mock)
	ctx := context.Background()

	s0 := foxState(t)
	s1, err := r.Reconcile(ctx, s0, "look around", "The meadow hums with bees.")
	require.NoError(t, err)
	s2, err := r.Reconcile(ctx, s1, "sniff the air", "You smell acorns to the north.")
	require.NoError(t, err)

	assert.True(t, state.ClockAfter(s1.Clock, s0.Clock), "%s should be after %s", s1.Clock, s0.Clock)
	assert.True(t, state.ClockAfter(s2.Clock, s1.Clock), "%s should be after %s", s2.Clock, s1.Clock)
	assert.NotEqual(t, s1.Clock, s2.Clock)
}

func TestReconcile_BackendTimeoutKeepsState(t *testing.T) {
	current := foxState(t)
	before, err := state.JSONCodec{}.Marshal(current)
	require.NoError(t, err)

	mock := services.NewMockLLMAPI()
	mock.SetGenerateError(context.DeadlineExceeded)

	next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "go north", "You trot north.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReconcileBackendExhausted))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, services.IsBackendError(err))
	assert.Len(t, mock.Calls(), 3)

	assert.Same(t, current, next)
	after, err := state.JSONCodec{}.Marshal(next)
	require.NoError(t, err)
	assert.Equal(t, before, after, "state must be byte-for-byte unchanged")
}

func TestReconcile_EmptyReplyKeepsState(t *testing.T) {
	current := foxState(t)
	mock := services.NewMockLLMAPI("", "", "")

	next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "wait", "Nothing happens.")
	assert.True(t, errors.Is(err, ErrReconcileBackendExhausted))
	assert.True(t, errors.Is(err, services.ErrEmptyResponse))
	assert.Same(t, current, next)
}

func TestReconcile_RetriesThenSucceeds(t *testing.T) {
	mock := services.NewMockLLMAPI().Enqueue(
		services.MockReply{Err: errors.New("connection reset")},
		services.MockReply{Text: foxJSON},
	)

	next, err := newTestReconciler(mock).Reconcile(context.Background(), foxState(t), "wait", "Time passes.")
	require.NoError(t, err)
	assert.Len(t, mock.Calls(), 2)
	assert.Equal(t, "Day 1, 08:01", next.Clock)
}

func TestReconcile_ParseFailureNotRetried(t *testing.T) {
	current := foxState(t)
	mock := services.NewMockLLMAPI("I'm sorry, I can only narrate stories.", foxJSON)

	next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "wait", "Time passes.")
	assert.True(t, errors.Is(err, ErrReconcileParse))
	assert.Same(t, current, next)
	assert.Len(t, mock.Calls(), 1)
}

func TestReconcile_InvalidStatusRejected(t *testing.T) {
	current := foxState(t)
	reply := strings.Replace(foxJSON, `"status": "playing"`, `"status": "victorious"`, 1)
	mock := services.NewMockLLMAPI(reply)

	next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "wait", "Time passes.")
	assert.True(t, errors.Is(err, ErrReconcileParse))
	assert.Same(t, current, next)
}

func TestReconcile_InventoryUniqueAndInputUntouched(t *testing.T) {
	current := foxState(t)
	snapshot := current.Clone()

	reply := strings.Replace(foxJSON,
		`"inventory": [{"name": "Feather", "description": "a soft grey feather"}]`,
		`"inventory": [{"name": "Feather"}, {"name": "Acorn"}, {"name": "acorn"}, "Feather"]`, 1)
	mock := services.NewMockLLMAPI(reply)

	next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "pick up the acorn", "You grab an acorn.")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, item := range next.Player.Inventory {
		key := strings.ToLower(item.Name)
		assert.False(t, seen[key], "duplicate item %q", item.Name)
		seen[key] = true
	}
	assert.Len(t, next.Player.Inventory, 2)
	assert.True(t, current.Equal(snapshot), "input state must not be mutated")
	assert.NotSame(t, current, next)
}

func TestReconcile_IncompleteReplyKeepsState(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"only player", `{"status":"playing","clock":"Day 1, 09:00","player":{"name":"Fox","location":"Meadow"}}`},
		{"no characters", strings.Replace(foxJSON, `"characters": {`, `"npcs": {`, 1)},
		{"no inventory", strings.Replace(foxJSON, `"inventory": [{"name": "Feather", "description": "a soft grey feather"}],`, ``, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := foxState(t)
			snapshot := current.Clone()
			mock := services.NewMockLLMAPI(tt.reply)

			next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "look around", "The meadow hums with bees.")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrReconcileParse))
			assert.True(t, errors.Is(err, state.ErrIncompleteState))
			assert.Same(t, current, next)
			assert.True(t, current.Equal(snapshot))
			assert.Len(t, next.Player.Inventory, 1)
			assert.Len(t, next.Locations, 2)
			assert.Len(t, next.Characters, 1)
			assert.Len(t, mock.Calls(), 1, "parse failures are not retried")
		})
	}
}

func TestReconcile_TerminalStateUnchanged(t *testing.T) {
	for _, status := range []state.Status{state.StatusWon, state.StatusLost} {
		t.Run(string(status), func(t *testing.T) {
			current := foxState(t)
			current.Status = status
			mock := services.NewMockLLMAPI(foxJSON)

			next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "dance", "You dance.")
			require.NoError(t, err)
			assert.Same(t, current, next)
			assert.Empty(t, mock.Calls())
		})
	}
}

func TestReconcile_TerminalStatusCannotBeReverted(t *testing.T) {
	current := foxState(t)
	reply := strings.Replace(foxJSON, `"status": "playing"`, `"status": "lost"`, 1)
	mock := services.NewMockLLMAPI(reply)

	next, err := newTestReconciler(mock).Reconcile(context.Background(), current, "jump off the cliff", "You fall forever.")
	require.NoError(t, err)
	assert.Equal(t, state.StatusLost, next.Status)

	again, err := newTestReconciler(services.NewMockLLMAPI(foxJSON)).Reconcile(context.Background(), next, "get up", "You can't.")
	require.NoError(t, err)
	assert.Equal(t, state.StatusLost, again.Status)
}

func TestReconcile_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	current := foxState(t)
	mock := services.NewMockLLMAPI(foxJSON)
	next, err := newTestReconciler(mock).Reconcile(ctx, current, "wait", "Time passes.")
	assert.True(t, errors.Is(err, ErrReconcileBackendExhausted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Same(t, current, next)
	assert.Len(t, mock.Calls(), 1)
}

func TestReconcile_YAMLCodec(t *testing.T) {
	current := foxState(t)
	reply := "```yaml\nstatus: playing\nclock: Day 1, 09:00\nobjective: find the golden acorn\nplayer:\n  name: Fox\n  location: Oak Grove\n  inventory: [Feather]\ncharacters: {}\nlocations:\n  Oak Grove:\n    adjacent:\n      south: Meadow\n```"
	mock := services.NewMockLLMAPI(reply)

	next, err := NewReconciler(mock, state.YAMLCodec{}, discardLogger()).Reconcile(context.Background(), current, "go north", "You trot into the oak grove.")
	require.NoError(t, err)
	assert.Equal(t, "Oak Grove", next.Player.Location)
	assert.True(t, next.Locations["Oak Grove"].Explored)
	assert.Contains(t, next.Locations, "Meadow")
	assert.Contains(t, mock.Calls()[0].Messages[1].Content, "```yaml")
}
