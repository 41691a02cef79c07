package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCharacterMap_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []string
	}{
		{name: "map", json: `{"Owl":{"location":"Oak Grove"}}`, want: []string{"Owl"}},
		{name: "list", json: `[{"name":"Owl"},{"name":"Beetle"},{"location":"nowhere"}]`, want: []string{"Owl", "Beetle"}},
		{name: "names", json: `["Owl","Beetle"]`, want: []string{"Owl", "Beetle"}},
		{name: "null", json: `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m CharacterMap
			require.NoError(t, json.Unmarshal([]byte(tt.json), &m))
			assert.Len(t, m, len(tt.want))
			for _, name := range tt.want {
				assert.Contains(t, m, name)
			}
		})
	}

	var m CharacterMap
	assert.Error(t, json.Unmarshal([]byte(`42`), &m))
}

func TestLocationMap_Unmarshal(t *testing.T) {
	var fromList LocationMap
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"Meadow","explored":true,"adjacent":{"north":"Oak Grove"}}]`), &fromList))
	require.Contains(t, fromList, "Meadow")
	assert.True(t, fromList["Meadow"].Explored)
	assert.Equal(t, "Oak Grove", fromList["Meadow"].Adjacent["north"])

	var fromYAML LocationMap
	require.NoError(t, yaml.Unmarshal([]byte("- name: Meadow\n  explored: true\n- name: Brook\n"), &fromYAML))
	assert.True(t, fromYAML["Meadow"].Explored)
	assert.Contains(t, fromYAML, "Brook")

	var names LocationMap
	require.NoError(t, yaml.Unmarshal([]byte("[Meadow, Brook]"), &names))
	assert.Len(t, names, 2)
}

func TestItemList_Unmarshal(t *testing.T) {
	var fromJSON ItemList
	require.NoError(t, json.Unmarshal([]byte(`["Feather",{"name":"Acorn","description":"golden"}]`), &fromJSON))
	assert.Equal(t, ItemList{{Name: "Feather"}, {Name: "Acorn", Description: "golden"}}, fromJSON)

	var fromYAML ItemList
	require.NoError(t, yaml.Unmarshal([]byte("- Feather\n- name: Acorn\n  description: golden\n"), &fromYAML))
	assert.Equal(t, fromJSON, fromYAML)

	var bad ItemList
	assert.Error(t, json.Unmarshal([]byte(`"Feather"`), &bad))
}
