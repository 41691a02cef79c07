package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/tale-engine/pkg/scenario"
	"github.com/jwebster45206/tale-engine/pkg/state"
)

// Snapshotter persists the single world state snapshot of a game.
// Load returns (nil, nil) when no snapshot exists.
type Snapshotter interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	Save(ctx context.Context, ws *state.WorldState) error
	Load(ctx context.Context) (*state.WorldState, error)
	Delete(ctx context.Context) error

	// SaveCrash writes a forensic copy next to the snapshot and returns
	// where it went.
	SaveCrash(ctx context.Context, id uuid.UUID, ws *state.WorldState) (string, error)
}

// ScenarioLibrary loads scenario files by name.
type ScenarioLibrary interface {
	ListScenarios(ctx context.Context) (map[string]string, error)
	GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error)
}
