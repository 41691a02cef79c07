package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// foxJSON is a well-formed model reply for the golden acorn scenario.
const foxJSON = `{
  "status": "playing",
  "clock": "Day 1, 08:00",
  "objective": "find the golden acorn",
  "player": {
    "name": "Fox",
    "being_type": "fox",
    "location": "Meadow",
    "inventory": [{"name": "Feather", "description": "a soft grey feather"}],
    "status_effects": []
  },
  "characters": {
    "Owl": {"name": "Owl", "being_type": "owl", "location": "Oak Grove", "inventory": [], "status_effects": []}
  },
  "locations": {
    "Meadow": {"explored": true, "description": "A quiet meadow", "adjacent": {"north": "Oak Grove"}},
    "Oak Grove": {"explored": false, "adjacent": {"south": "Meadow"}}
  },
  "possible_actions": ["go north", "sniff the air"]
}`

func foxState(t *testing.T) *state.WorldState {
	t.Helper()
	ws, err := state.JSONCodec{}.Parse(foxJSON)
	require.NoError(t, err)
	return state.Normalize(ws)
}
