package state

import (
	"strings"
)

// Normalize returns a copy of ws with structural defects repaired: missing
// collections, unreadable clock, empty objective, duplicate item names,
// dangling location references, and an oversized action list. It is used on
// freshly extracted states and restored snapshots.
func Normalize(ws *WorldState) *WorldState {
	if ws == nil {
		return Default()
	}
	out := ws.Clone()
	if _, ok := ParseClock(out.Clock); !ok {
		out.Clock = DefaultClock
	}
	if strings.TrimSpace(out.Objective) == "" {
		out.Objective = DefaultObjective
	}
	normalize(out)
	return out
}

// Repair returns the state to adopt after a reconciliation. It never mutates
// prev or next. The clock is forced strictly forward, an emptied objective or
// player location falls back to the previous value, effects that were
// already expired in prev are dropped, and all Normalize rules apply.
func Repair(prev, next *WorldState) *WorldState {
	out := next.Clone()
	if prev == nil {
		return Normalize(out)
	}

	out.Clock = AdvanceClock(prev.Clock, out.Clock)

	if strings.TrimSpace(out.Objective) == "" {
		out.Objective = prev.Objective
	}
	if strings.TrimSpace(out.Player.Location) == "" {
		out.Player.Location = prev.Player.Location
	}
	if prev.Status.IsTerminal() {
		out.Status = prev.Status
	}

	out.Player.StatusEffects = pruneExpired(prev.Player.StatusEffects, out.Player.StatusEffects)
	for name, c := range out.Characters {
		if before, ok := prev.Characters[name]; ok {
			c.StatusEffects = pruneExpired(before.StatusEffects, c.StatusEffects)
			out.Characters[name] = c
		}
	}

	normalize(out)
	return out
}

func normalize(ws *WorldState) {
	ws.Status, _ = ParseStatus(string(ws.Status))

	if ws.Characters == nil {
		ws.Characters = CharacterMap{}
	}
	if ws.Locations == nil {
		ws.Locations = LocationMap{}
	}

	ws.Player = normalizeCharacter(ws.Player, ws.Clock)
	if strings.TrimSpace(ws.Player.Name) == "" {
		ws.Player.Name = "You"
	}

	for key, c := range ws.Characters {
		if strings.TrimSpace(key) == "" {
			delete(ws.Characters, key)
			continue
		}
		if c.Name == "" {
			c.Name = key
		}
		ws.Characters[key] = normalizeCharacter(c, ws.Clock)
	}

	for name, loc := range ws.Locations {
		if loc.Adjacent == nil {
			loc.Adjacent = map[string]string{}
		}
		for dir, target := range loc.Adjacent {
			if strings.TrimSpace(target) == "" {
				delete(loc.Adjacent, dir)
			}
		}
		ws.Locations[name] = loc
	}

	// Every referenced location must exist; unknown ones become unexplored stubs.
	for _, loc := range ws.Locations {
		for _, target := range loc.Adjacent {
			ensureLocation(ws.Locations, target)
		}
	}
	for _, c := range ws.Characters {
		ensureLocation(ws.Locations, c.Location)
	}
	ensureLocation(ws.Locations, ws.Player.Location)
	if loc, ok := ws.Locations[ws.Player.Location]; ok {
		loc.Explored = true
		ws.Locations[ws.Player.Location] = loc
	}

	ws.PossibleActions = normalizeActions(ws.PossibleActions)
}

func normalizeCharacter(c Character, clock string) Character {
	c.Name = strings.TrimSpace(c.Name)
	c.Location = strings.TrimSpace(c.Location)
	c.Inventory = dedupeItems(c.Inventory)
	if c.StatusEffects == nil {
		c.StatusEffects = []StatusEffect{}
	}

	effects := c.StatusEffects[:0:0]
	for _, e := range c.StatusEffects {
		e.Description = strings.TrimSpace(e.Description)
		if e.Description == "" {
			continue
		}
		if !e.Expired && !appliedAtValid(e.AppliedAt, clock) {
			e.AppliedAt = clock
		}
		effects = append(effects, e)
	}
	c.StatusEffects = effects
	return c
}

// appliedAtValid reports whether an effect timestamp is readable and not
// later than the current clock.
func appliedAtValid(appliedAt, clock string) bool {
	a, ok := ParseClock(appliedAt)
	if !ok {
		return false
	}
	c, ok := ParseClock(clock)
	if !ok {
		return true
	}
	return a.Comparable(c) && !a.After(c)
}

func pruneExpired(before, after []StatusEffect) []StatusEffect {
	wasExpired := make(map[string]bool)
	for _, e := range before {
		if e.Expired {
			wasExpired[strings.ToLower(strings.TrimSpace(e.Description))] = true
		}
	}
	out := make([]StatusEffect, 0, len(after))
	for _, e := range after {
		if e.Expired && wasExpired[strings.ToLower(strings.TrimSpace(e.Description))] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func dedupeItems(items ItemList) ItemList {
	out := make(ItemList, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		key := strings.ToLower(item.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func ensureLocation(locations LocationMap, name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	if _, ok := locations[name]; ok {
		return
	}
	locations[name] = Location{Adjacent: map[string]string{}}
}

func normalizeActions(actions []string) []string {
	if len(actions) == 0 {
		return nil
	}
	out := make([]string, 0, MaxPossibleActions)
	seen := make(map[string]bool)
	for _, a := range actions {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
		if len(out) == MaxPossibleActions {
			break
		}
	}
	return out
}
