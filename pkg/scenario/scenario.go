package scenario

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is the free-text premise a game is initialized from.
type Scenario struct {
	Name   string `json:"name" yaml:"name"`
	Rating string `json:"rating,omitempty" yaml:"rating,omitempty"` // optional content rating override
	Story  string `json:"story" yaml:"story"`
}

// Validate checks that the scenario has something to narrate.
func (s *Scenario) Validate() error {
	if s == nil {
		return fmt.Errorf("scenario is nil")
	}
	if strings.TrimSpace(s.Story) == "" {
		return fmt.Errorf("scenario %q has no story", s.Name)
	}
	return nil
}

// Parse decodes a scenario file. YAML and JSON files are decoded by
// extension; anything else is treated as plain story text named after the
// file.
func Parse(filename string, data []byte) (*Scenario, error) {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))

	var s Scenario
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
		}
	default:
		s.Story = string(data)
	}

	s.Story = strings.TrimSpace(s.Story)
	if s.Name == "" {
		s.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Builtin scenarios are used when no scenario is configured or generation
// fails.
var (
	WormColony = Scenario{
		Name: "The Wizard Worm",
		Story: "You are a worm trapped in an ant colony, and you've just discovered you have magical " +
			"wizardry powers. Your task is to defeat the evil queen bee who has taken over the colony. " +
			"Give the player a starting inventory with some useful items and some silly ones.",
	}

	FoxMeadow = Scenario{
		Name:  "The Golden Acorn",
		Story: "A fox wakes up in a quiet meadow, objective: find the golden acorn.",
	}
)

// Default returns the scenario used when nothing else is available.
func Default() Scenario {
	return WormColony
}
