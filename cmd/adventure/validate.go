package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/tale-engine/pkg/state"
)

type severity string

const (
	severityError severity = "error"
	severityWarn  severity = "warn"
)

// issue is one finding about a snapshot file.
type issue struct {
	Severity severity
	Field    string
	Message  string
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <snapshot>",
		Short: "Check a saved world state file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args[0])
		},
	}
}

func runValidate(out io.Writer, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	issues := validateSnapshot(filename, data)
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s is valid.\n", filename)
		return nil
	}

	var errorIssues, warnIssues []issue
	for _, is := range issues {
		switch is.Severity {
		case severityError:
			errorIssues = append(errorIssues, is)
		case severityWarn:
			warnIssues = append(warnIssues, is)
		}
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors in %s", filename)
	}
	return nil
}

func printIssues(out io.Writer, issues []issue) {
	for _, is := range issues {
		if is.Field == "" {
			fmt.Fprintf(out, "  - %s\n", is.Message)
			continue
		}
		fmt.Fprintf(out, "  - %s: %s\n", is.Field, is.Message)
	}
}

// validateSnapshot strictly decodes data and checks the result. Decoding and
// schema failures are errors; inconsistencies the engine would repair on load
// are warnings.
func validateSnapshot(filename string, data []byte) []issue {
	ws, err := decodeStrict(filename, data)
	if err != nil {
		return []issue{{Severity: severityError, Message: err.Error()}}
	}

	var issues []issue
	if err := ws.Validate(); err != nil {
		issues = append(issues, issue{Severity: severityError, Message: err.Error()})
	}

	warn := func(field, format string, args ...any) {
		issues = append(issues, issue{Severity: severityWarn, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, ok := state.ParseClock(ws.Clock); !ok {
		warn("clock", "%q is not a recognized time", ws.Clock)
	}
	if strings.TrimSpace(ws.Objective) == "" {
		warn("objective", "empty")
	}
	if ws.Player.Location != "" {
		if _, ok := ws.Locations[ws.Player.Location]; !ok {
			warn("player.location", "%q is not a known location", ws.Player.Location)
		}
	}

	seen := make(map[string]bool, len(ws.Player.Inventory))
	for _, item := range ws.Player.Inventory {
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if key != "" && seen[key] {
			warn("player.inventory", "duplicate item %q", item.Name)
		}
		seen[key] = true
	}

	for _, name := range sortedKeys(ws.Characters) {
		c := ws.Characters[name]
		if c.Location == "" {
			continue
		}
		if _, ok := ws.Locations[c.Location]; !ok {
			warn("characters."+name+".location", "%q is not a known location", c.Location)
		}
	}
	for _, name := range sortedKeys(ws.Locations) {
		loc := ws.Locations[name]
		for _, dir := range sortedKeys(loc.Adjacent) {
			if _, ok := ws.Locations[loc.Adjacent[dir]]; !ok {
				warn("locations."+name+".adjacent."+dir, "%q is not a known location", loc.Adjacent[dir])
			}
		}
	}

	if len(ws.PossibleActions) > state.MaxPossibleActions {
		warn("possible_actions", "%d actions, at most %d are kept", len(ws.PossibleActions), state.MaxPossibleActions)
	}
	return issues
}

// decodeStrict rejects unknown fields. YAML is chosen by extension,
// everything else is read as JSON.
func decodeStrict(filename string, data []byte) (*state.WorldState, error) {
	var ws state.WorldState

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&ws); err != nil {
			return nil, fmt.Errorf("strict YAML decoding failed: %w", err)
		}
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("file contains invalid JSON")
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ws); err != nil {
			return nil, fmt.Errorf("strict JSON decoding failed: %w", err)
		}
	}
	return &ws, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
