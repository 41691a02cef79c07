package services

import (
	"context"
	"time"

	"github.com/jwebster45206/tale-engine/pkg/chat"
)

// Temperatures used by the engine.
const (
	NarrationTemperature = 0.8
	StateTemperature     = 0.2
)

// GenerateOptions tune a single completion.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int           // 0 means the backend default
	Timeout     time.Duration // 0 means no per-call deadline
}

// Generator produces text from role-tagged messages. The Gateway and every
// Backend satisfy it.
type Generator interface {
	Generate(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error)
}

// Backend is one interchangeable text-generation service. Any failure,
// including an empty reply, is returned as a *BackendError.
type Backend interface {
	Generator
	// Name identifies the backend in logs and errors.
	Name() string
	// Remote reports whether the backend is a hosted API.
	Remote() bool
}

// withTimeout applies the per-call deadline if one is set.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
