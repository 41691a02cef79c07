package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// CharacterMap is keyed by character name. Models frequently emit a list
// instead of a map, so both shapes are accepted on decode.
type CharacterMap map[string]Character

// LocationMap is keyed by location name and, like CharacterMap, accepts a
// list of named entries or a list of bare names.
type LocationMap map[string]Location

// ItemList accepts item objects or bare item names.
type ItemList []Item

type namedLocation struct {
	Name     string `json:"name" yaml:"name"`
	Location `yaml:",inline"`
}

// UnmarshalJSON allows CharacterMap to accept a map, an array of characters,
// or an array of names.
func (m *CharacterMap) UnmarshalJSON(data []byte) error {
	var asMap map[string]Character
	if err := json.Unmarshal(data, &asMap); err == nil {
		*m = asMap
		return nil
	}
	var asList []Character
	if err := json.Unmarshal(data, &asList); err == nil {
		*m = characterMapFromList(asList)
		return nil
	}
	var asNames []string
	if err := json.Unmarshal(data, &asNames); err == nil {
		*m = characterMapFromNames(asNames)
		return nil
	}
	return fmt.Errorf("characters: not a map or array: %s", string(data))
}

// UnmarshalYAML mirrors UnmarshalJSON for the yaml codec.
func (m *CharacterMap) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var asMap map[string]Character
		if err := node.Decode(&asMap); err != nil {
			return err
		}
		*m = asMap
		return nil
	case yaml.SequenceNode:
		if allScalars(node) {
			var asNames []string
			if err := node.Decode(&asNames); err != nil {
				return err
			}
			*m = characterMapFromNames(asNames)
			return nil
		}
		var asList []Character
		if err := node.Decode(&asList); err != nil {
			return err
		}
		*m = characterMapFromList(asList)
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*m = nil
			return nil
		}
	}
	return fmt.Errorf("characters: not a map or sequence (line %d)", node.Line)
}

// UnmarshalJSON allows LocationMap to accept a map, an array of named
// locations, or an array of names.
func (m *LocationMap) UnmarshalJSON(data []byte) error {
	var asMap map[string]Location
	if err := json.Unmarshal(data, &asMap); err == nil {
		*m = asMap
		return nil
	}
	var asList []namedLocation
	if err := json.Unmarshal(data, &asList); err == nil {
		*m = locationMapFromList(asList)
		return nil
	}
	var asNames []string
	if err := json.Unmarshal(data, &asNames); err == nil {
		*m = locationMapFromNames(asNames)
		return nil
	}
	return fmt.Errorf("locations: not a map or array: %s", string(data))
}

// UnmarshalYAML mirrors UnmarshalJSON for the yaml codec.
func (m *LocationMap) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var asMap map[string]Location
		if err := node.Decode(&asMap); err != nil {
			return err
		}
		*m = asMap
		return nil
	case yaml.SequenceNode:
		if allScalars(node) {
			var asNames []string
			if err := node.Decode(&asNames); err != nil {
				return err
			}
			*m = locationMapFromNames(asNames)
			return nil
		}
		var asList []namedLocation
		if err := node.Decode(&asList); err != nil {
			return err
		}
		*m = locationMapFromList(asList)
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*m = nil
			return nil
		}
	}
	return fmt.Errorf("locations: not a map or sequence (line %d)", node.Line)
}

// UnmarshalJSON allows ItemList entries to be objects or bare strings.
func (l *ItemList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("inventory: not an array: %s", string(data))
	}
	if raw == nil {
		*l = nil
		return nil
	}
	items := make(ItemList, 0, len(raw))
	for _, r := range raw {
		trimmed := bytes.TrimSpace(r)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var name string
			if err := json.Unmarshal(trimmed, &name); err != nil {
				return err
			}
			items = append(items, Item{Name: name})
			continue
		}
		var item Item
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return fmt.Errorf("inventory item: %w", err)
		}
		items = append(items, item)
	}
	*l = items
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for the yaml codec.
func (l *ItemList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*l = nil
		return nil
	}
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("inventory: not a sequence (line %d)", node.Line)
	}
	items := make(ItemList, 0, len(node.Content))
	for _, child := range node.Content {
		if child.Kind == yaml.ScalarNode {
			items = append(items, Item{Name: child.Value})
			continue
		}
		var item Item
		if err := child.Decode(&item); err != nil {
			return fmt.Errorf("inventory item: %w", err)
		}
		items = append(items, item)
	}
	*l = items
	return nil
}

func allScalars(node *yaml.Node) bool {
	for _, child := range node.Content {
		if child.Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}

func characterMapFromList(list []Character) CharacterMap {
	out := make(CharacterMap, len(list))
	for _, c := range list {
		if c.Name == "" {
			continue
		}
		out[c.Name] = c
	}
	return out
}

func characterMapFromNames(names []string) CharacterMap {
	out := make(CharacterMap, len(names))
	for _, name := range names {
		out[name] = Character{Name: name}
	}
	return out
}

func locationMapFromList(list []namedLocation) LocationMap {
	out := make(LocationMap, len(list))
	for _, l := range list {
		if l.Name == "" {
			continue
		}
		out[l.Name] = l.Location
	}
	return out
}

func locationMapFromNames(names []string) LocationMap {
	out := make(LocationMap, len(names))
	for _, name := range names {
		out[name] = Location{}
	}
	return out
}
