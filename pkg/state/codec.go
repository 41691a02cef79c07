package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoState is returned when a model response contains nothing decodable.
var ErrNoState = errors.New("no world state found in response")

// ErrIncompleteState is returned by ParseComplete when a required key is
// absent from the decoded document.
var ErrIncompleteState = errors.New("world state is incomplete")

// RequiredFields are the keys a full state must carry. Only possible_actions
// may be left out.
var RequiredFields = []string{"status", "clock", "objective", "player", "player.inventory", "characters", "locations"}

// Codec converts a WorldState to and from the text exchanged with the model.
// Parse must be pure: the same text always yields the same result.
// ParseComplete additionally rejects documents missing any RequiredFields.
type Codec interface {
	Name() string
	Marshal(ws *WorldState) (string, error)
	Parse(text string) (*WorldState, error)
	ParseComplete(text string) (*WorldState, error)
}

// NewCodec returns the codec registered under name. An empty name selects JSON.
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	}
	return nil, fmt.Errorf("unknown state encoding %q", name)
}

var fencedBlockRegex = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n(.*?)```")

// fencedBlock returns the body of the first markdown code fence in text.
func fencedBlock(text string) (string, bool) {
	m := fencedBlockRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// JSONCodec is the default encoding.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(ws *WorldState) (string, error) {
	b, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal world state: %w", err)
	}
	return string(b), nil
}

// Parse locates the first top-level JSON object in text that decodes to a
// valid state, preferring a fenced block, and falls back to decoding the
// whole response.
func (c JSONCodec) Parse(text string) (*WorldState, error) {
	return c.parse(text, false)
}

// ParseComplete is Parse restricted to documents carrying every required key.
func (c JSONCodec) ParseComplete(text string) (*WorldState, error) {
	return c.parse(text, true)
}

func (JSONCodec) parse(text string, complete bool) (*WorldState, error) {
	var candidates []string
	if body, ok := fencedBlock(text); ok {
		candidates = append(candidates, objects(body)...)
	}
	candidates = append(candidates, objects(text)...)
	candidates = append(candidates, strings.TrimSpace(text))

	// A candidate that decodes but fails the schema explains the failure
	// better than a stray brace in prose.
	var decodeErr, schemaErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var ws WorldState
		if err := json.Unmarshal([]byte(candidate), &ws); err != nil {
			decodeErr = fmt.Errorf("failed to decode world state: %w", err)
			continue
		}
		if err := ws.Validate(); err != nil {
			schemaErr = fmt.Errorf("invalid world state: %w", err)
			continue
		}
		if complete {
			var raw map[string]any
			if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
				decodeErr = fmt.Errorf("failed to decode world state: %w", err)
				continue
			}
			if err := checkComplete(raw); err != nil {
				schemaErr = err
				continue
			}
		}
		return &ws, nil
	}
	switch {
	case schemaErr != nil:
		return nil, schemaErr
	case decodeErr != nil:
		return nil, decodeErr
	}
	return nil, ErrNoState
}

// objects returns the balanced {...} spans in text, in order. Scanning
// resumes after each span, so nested objects are not reported separately.
// Braces inside string literals are ignored.
func objects(text string) []string {
	var out []string
	for pos := 0; pos < len(text); {
		i := strings.IndexByte(text[pos:], '{')
		if i < 0 {
			break
		}
		start := pos + i
		end, ok := closingBrace(text, start)
		if !ok {
			pos = start + 1
			continue
		}
		out = append(out, text[start:end+1])
		pos = end + 1
	}
	return out
}

// closingBrace returns the index of the brace closing the object opened at
// start.
func closingBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// checkComplete reports the RequiredFields absent from a decoded document.
func checkComplete(raw map[string]any) error {
	var missing []string
	for _, field := range RequiredFields {
		parent, key, nested := strings.Cut(field, ".")
		if !nested {
			if _, ok := raw[field]; !ok {
				missing = append(missing, field)
			}
			continue
		}
		obj, ok := raw[parent].(map[string]any)
		if !ok {
			continue // parent already reported
		}
		if _, ok := obj[key]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteState, strings.Join(missing, ", "))
	}
	return nil
}

// YAMLCodec trades strictness for a format some local models produce more
// reliably.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Marshal(ws *WorldState) (string, error) {
	b, err := yaml.Marshal(ws)
	if err != nil {
		return "", fmt.Errorf("failed to marshal world state: %w", err)
	}
	return string(b), nil
}

// Parse decodes the first fenced block if present, otherwise the whole
// response. A leading "---" document marker is tolerated.
func (c YAMLCodec) Parse(text string) (*WorldState, error) {
	return c.parse(text, false)
}

// ParseComplete is Parse restricted to documents carrying every required key.
func (c YAMLCodec) ParseComplete(text string) (*WorldState, error) {
	return c.parse(text, true)
}

func (YAMLCodec) parse(text string, complete bool) (*WorldState, error) {
	body := text
	if fenced, ok := fencedBlock(text); ok {
		body = fenced
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrNoState
	}

	var ws WorldState
	if err := yaml.Unmarshal([]byte(body), &ws); err != nil {
		return nil, fmt.Errorf("failed to decode world state: %w", err)
	}
	if err := ws.Validate(); err != nil {
		return nil, fmt.Errorf("invalid world state: %w", err)
	}
	if complete {
		var raw map[string]any
		if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
			return nil, fmt.Errorf("failed to decode world state: %w", err)
		}
		if err := checkComplete(raw); err != nil {
			return nil, err
		}
	}
	return &ws, nil
}
