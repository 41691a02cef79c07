package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec(t *testing.T) {
	for _, name := range []string{"", "json", "JSON"} {
		c, err := NewCodec(name)
		require.NoError(t, err)
		assert.Equal(t, "json", c.Name())
	}
	c, err := NewCodec("yml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Name())

	_, err = NewCodec("toml")
	assert.Error(t, err)
}

func TestJSONCodec_Parse(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantErr      bool
		wantLocation string
	}{
		{
			name:         "bare object",
			text:         `{"status":"playing","clock":"Day 1, 08:00","player":{"name":"Fox","location":"Meadow"}}`,
			wantLocation: "Meadow",
		},
		{
			name: "object in prose",
			text: `Sure! Here is the updated state:
{"status":"playing","player":{"name":"Fox","location":"Oak Grove","thoughts":"a } in a string {"}}
Let me know if you need anything else.`,
			wantLocation: "Oak Grove",
		},
		{
			name: "fenced block",
			text: "Updated:\n```json\n{\"player\":{\"name\":\"Fox\",\"location\":\"Burrow\"}}\n```\n",
			wantLocation: "Burrow",
		},
		{
			name: "escaped quote inside string",
			text: `{"player":{"name":"Fox","location":"Den","thoughts":"she said \"hi {\""}}`,
			wantLocation: "Den",
		},
		{
			name:         "characters as list",
			text:         `{"player":{"name":"Fox","location":"Meadow"},"characters":[{"name":"Owl","location":"Oak Grove"}]}`,
			wantLocation: "Meadow",
		},
		{
			name:         "stray brace in prose",
			text:         "Here is the state {updated}:\n" + `{"status":"playing","player":{"name":"Fox","location":"Den"}}`,
			wantLocation: "Den",
		},
		{
			name:         "unbalanced brace in prose",
			text:         "Note: { is unmatched.\n" + `{"player":{"name":"Fox","location":"Den"}}`,
			wantLocation: "Den",
		},
		{name: "prose only", text: "I cannot help with that.", wantErr: true},
		{name: "empty", text: "", wantErr: true},
		{name: "truncated", text: `{"player":{"name":"Fox"`, wantErr: true},
		{name: "invalid status", text: `{"status":"paused","player":{"name":"Fox"}}`, wantErr: true},
		{name: "missing player", text: `{"status":"playing"}`, wantErr: true},
		{name: "inventory item without name", text: `{"player":{"name":"Fox","inventory":[{"description":"x"}]}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := JSONCodec{}.Parse(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, ws)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLocation, ws.Player.Location)
		})
	}
}

func TestCodecs_ParseComplete(t *testing.T) {
	complete := `{"status":"playing","clock":"Day 1, 08:00","objective":"find the golden acorn",` +
		`"player":{"name":"Fox","location":"Meadow","inventory":[]},"characters":{},"locations":{"Meadow":{}}}`
	partial := `{"status":"playing","clock":"Day 1, 09:00","player":{"name":"Fox","location":"Meadow"}}`

	ws, err := JSONCodec{}.ParseComplete("Sure {ok}: " + complete)
	require.NoError(t, err)
	assert.Equal(t, "Meadow", ws.Player.Location)

	_, err = JSONCodec{}.Parse(partial)
	assert.NoError(t, err, "Parse stays lenient")

	_, err = JSONCodec{}.ParseComplete(partial)
	require.ErrorIs(t, err, ErrIncompleteState)
	for _, field := range []string{"objective", "player.inventory", "characters", "locations"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.NotContains(t, err.Error(), "clock")

	yamlPartial := "status: playing\nclock: Day 1, 09:00\nobjective: x\nplayer:\n  name: Fox\n  inventory: []\nlocations: {}\n"
	_, err = YAMLCodec{}.ParseComplete(yamlPartial)
	require.ErrorIs(t, err, ErrIncompleteState)
	assert.Contains(t, err.Error(), "characters")

	_, err = YAMLCodec{}.ParseComplete(yamlPartial + "characters: {}\n")
	assert.NoError(t, err)
}

func TestJSONCodec_ParseIsDeterministic(t *testing.T) {
	text := `prefix {"player":{"name":"Fox","location":"Meadow"},"locations":{"Meadow":{"explored":true}}} suffix`
	a, errA := JSONCodec{}.Parse(text)
	b, errB := JSONCodec{}.Parse(text)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.True(t, a.Equal(b))
}

func TestCodecs_RoundTrip(t *testing.T) {
	ws := Normalize(meadowState())
	ws.PossibleActions = []string{"dig"}
	ws.Player.StatusEffects = []StatusEffect{{Description: "Tired", AppliedAt: "Day 1, 08:00"}}

	for _, codec := range []Codec{JSONCodec{}, YAMLCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			text, err := codec.Marshal(ws)
			require.NoError(t, err)
			got, err := codec.Parse(text)
			require.NoError(t, err)
			assert.True(t, ws.Equal(got), "decoded state should match")
		})
	}
}

func TestYAMLCodec_Parse(t *testing.T) {
	text := "Here you go:\n```yaml\nstatus: won\nclock: Day 2, 09:00\nplayer:\n  name: Fox\n  location: Oak Grove\n  inventory:\n    - Golden Acorn\ncharacters:\n  - name: Owl\n    location: Oak Grove\nlocations:\n  - Oak Grove\n```\n"

	ws, err := YAMLCodec{}.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, ws.Status)
	assert.Equal(t, "Day 2, 09:00", ws.Clock)
	require.Len(t, ws.Player.Inventory, 1)
	assert.Equal(t, "Golden Acorn", ws.Player.Inventory[0].Name)
	assert.Contains(t, ws.Characters, "Owl")
	assert.Contains(t, ws.Locations, "Oak Grove")

	_, err = YAMLCodec{}.Parse("just some words")
	assert.Error(t, err)
	_, err = YAMLCodec{}.Parse("   ")
	assert.ErrorIs(t, err, ErrNoState)
}
