package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// DefaultObjective is used when a scenario does not yield a win condition.
const DefaultObjective = "Not yet determined"

// MaxPossibleActions caps the advisory action list.
const MaxPossibleActions = 4

// IsTerminal reports whether no further narration should occur.
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// ParseStatus normalizes a model-provided status. The boolean is false for
// values outside the enum.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPlaying, "":
		return StatusPlaying, true
	case StatusWon:
		return StatusWon, true
	case StatusLost:
		return StatusLost, true
	}
	return StatusPlaying, false
}

// Item is a named object held by a character.
type Item struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// StatusEffect is a timed condition applied to a character.
type StatusEffect struct {
	Description string `json:"description" yaml:"description"`
	AppliedAt   string `json:"applied_at" yaml:"applied_at"` // clock value
	Expired     bool   `json:"expired" yaml:"expired"`
}

// Character is the player or an NPC.
type Character struct {
	Name          string         `json:"name" yaml:"name"`
	BeingType     string         `json:"being_type,omitempty" yaml:"being_type,omitempty"` // e.g. "fox", "human", "ghost"
	Emotion       string         `json:"emotion,omitempty" yaml:"emotion,omitempty"`
	Location      string         `json:"location" yaml:"location"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Thoughts      string         `json:"thoughts,omitempty" yaml:"thoughts,omitempty"`
	Inventory     ItemList       `json:"inventory" yaml:"inventory"`
	StatusEffects []StatusEffect `json:"status_effects" yaml:"status_effects"`
}

// Location is a place in the world. Adjacent maps a direction or preposition
// to another location's name.
type Location struct {
	Explored    bool              `json:"explored" yaml:"explored"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Adjacent    map[string]string `json:"adjacent" yaml:"adjacent"`
}

// WorldState is the canonical snapshot of a game. It is replaced wholesale
// once per turn; nothing patches it field by field.
type WorldState struct {
	Status          Status       `json:"status" yaml:"status"`
	Clock           string       `json:"clock" yaml:"clock"`
	Objective       string       `json:"objective" yaml:"objective"`
	Player          Character    `json:"player" yaml:"player"`
	Characters      CharacterMap `json:"characters" yaml:"characters"`
	Locations       LocationMap  `json:"locations" yaml:"locations"`
	PossibleActions []string     `json:"possible_actions,omitempty" yaml:"possible_actions,omitempty"`
}

// New is an alias for Default.
func New() *WorldState { return Default() }

// Default returns the minimal state used when initialization cannot produce
// anything better.
func Default() *WorldState {
	return &WorldState{
		Status:    StatusPlaying,
		Clock:     DefaultClock,
		Objective: DefaultObjective,
		Player: Character{
			Name:          "You",
			Inventory:     ItemList{},
			StatusEffects: []StatusEffect{},
		},
		Characters: CharacterMap{},
		Locations:  LocationMap{},
	}
}

// Blank returns the empty template shown to the model during extraction.
func Blank() *WorldState {
	return &WorldState{
		Status: StatusPlaying,
		Player: Character{
			Inventory:     ItemList{},
			StatusEffects: []StatusEffect{},
		},
		Characters:      CharacterMap{},
		Locations:       LocationMap{},
		PossibleActions: []string{},
	}
}

// Clone returns a deep copy.
func (ws *WorldState) Clone() *WorldState {
	if ws == nil {
		return nil
	}
	out := *ws
	out.Player = ws.Player.clone()
	if ws.Characters != nil {
		out.Characters = make(CharacterMap, len(ws.Characters))
		for k, c := range ws.Characters {
			out.Characters[k] = c.clone()
		}
	}
	if ws.Locations != nil {
		out.Locations = make(LocationMap, len(ws.Locations))
		for k, l := range ws.Locations {
			out.Locations[k] = l.clone()
		}
	}
	if ws.PossibleActions != nil {
		out.PossibleActions = append([]string{}, ws.PossibleActions...)
	}
	return &out
}

func (c Character) clone() Character {
	out := c
	if c.Inventory != nil {
		out.Inventory = append(ItemList{}, c.Inventory...)
	}
	if c.StatusEffects != nil {
		out.StatusEffects = append([]StatusEffect{}, c.StatusEffects...)
	}
	return out
}

func (l Location) clone() Location {
	out := l
	if l.Adjacent != nil {
		out.Adjacent = make(map[string]string, len(l.Adjacent))
		for k, v := range l.Adjacent {
			out.Adjacent[k] = v
		}
	}
	return out
}

// Validate performs the hard schema checks. A state that fails here is
// treated as unparseable and never adopted.
func (ws *WorldState) Validate() error {
	if ws == nil {
		return fmt.Errorf("world state is nil")
	}
	if _, ok := ParseStatus(string(ws.Status)); !ok {
		return fmt.Errorf("invalid status %q", ws.Status)
	}
	if strings.TrimSpace(ws.Player.Name) == "" && strings.TrimSpace(ws.Player.Location) == "" {
		return fmt.Errorf("player is missing")
	}
	for i, item := range ws.Player.Inventory {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("player inventory item %d has no name", i)
		}
	}
	return nil
}

// Equal reports whether two states encode identically.
func (ws *WorldState) Equal(other *WorldState) bool {
	a, errA := json.Marshal(ws)
	b, errB := json.Marshal(other)
	return errA == nil && errB == nil && string(a) == string(b)
}

// CurrentLocation returns the player's location entry, if known.
func (ws *WorldState) CurrentLocation() (Location, bool) {
	loc, ok := ws.Locations[ws.Player.Location]
	return loc, ok
}

// DescribeLocation answers a "look" without consulting the model.
func (ws *WorldState) DescribeLocation() string {
	loc, ok := ws.CurrentLocation()
	if !ok {
		return "You are in an unknown location."
	}

	var sb strings.Builder
	sb.WriteString(ws.Player.Location)
	if loc.Description != "" {
		sb.WriteString(": " + loc.Description)
	}

	if len(loc.Adjacent) > 0 {
		dirs := make([]string, 0, len(loc.Adjacent))
		for dir := range loc.Adjacent {
			dirs = append(dirs, dir)
		}
		sort.Strings(dirs)
		exits := make([]string, 0, len(dirs))
		for _, dir := range dirs {
			exits = append(exits, dir+": "+loc.Adjacent[dir])
		}
		sb.WriteString("\nExits: " + strings.Join(exits, ", "))
	}

	var here []string
	for name, c := range ws.Characters {
		if c.Location == ws.Player.Location {
			here = append(here, name)
		}
	}
	if len(here) > 0 {
		sort.Strings(here)
		sb.WriteString("\nHere: " + strings.Join(here, ", "))
	}
	return sb.String()
}

// DescribeInventory answers an "inventory" without consulting the model.
func (ws *WorldState) DescribeInventory() string {
	if len(ws.Player.Inventory) == 0 {
		return "Your inventory is empty."
	}
	lines := make([]string, 0, len(ws.Player.Inventory))
	for _, item := range ws.Player.Inventory {
		line := "- " + item.Name
		if item.Description != "" {
			line += ": " + item.Description
		}
		lines = append(lines, line)
	}
	return "You have:\n" + strings.Join(lines, "\n")
}

// ActiveEffects returns the player's unexpired status effects.
func (ws *WorldState) ActiveEffects() []StatusEffect {
	var out []StatusEffect
	for _, e := range ws.Player.StatusEffects {
		if !e.Expired {
			out = append(out, e)
		}
	}
	return out
}
