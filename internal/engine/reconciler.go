package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/prompts"
	"github.com/jwebster45206/tale-engine/pkg/state"
)

// Reconcile defaults.
const (
	DefaultReconcileAttempts = 3
	DefaultReconcileBackoff  = time.Second
)

// Reconciler derives the next world state from a narration.
type Reconciler struct {
	gen      services.Generator
	codec    state.Codec
	attempts int
	backoff  time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewReconciler creates a reconciler with the default retry policy. A nil
// codec selects JSON.
func NewReconciler(gen services.Generator, codec state.Codec, logger *slog.Logger) *Reconciler {
	if codec == nil {
		codec = state.JSONCodec{}
	}
	return &Reconciler{
		gen:      gen,
		codec:    codec,
		attempts: DefaultReconcileAttempts,
		backoff:  DefaultReconcileBackoff,
		logger:   logger,
	}
}

// WithRetry sets the attempt count and the linear backoff step.
func (r *Reconciler) WithRetry(attempts int, backoff time.Duration) *Reconciler {
	if attempts < 1 {
		attempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	r.attempts = attempts
	r.backoff = backoff
	return r
}

// WithTimeout sets the per-attempt deadline.
func (r *Reconciler) WithTimeout(d time.Duration) *Reconciler {
	r.timeout = d
	return r
}

// Reconcile returns the state after action and narration. The result is
// always safe to adopt: on any error it is current itself. current is never
// mutated.
func (r *Reconciler) Reconcile(ctx context.Context, current *state.WorldState, action, narration string) (*state.WorldState, error) {
	if current == nil {
		return state.Default(), fmt.Errorf("%w: current state is nil", ErrReconcileParse)
	}
	if current.Status.IsTerminal() {
		return current, nil
	}

	messages, err := prompts.New(r.codec).
		WithState(current).
		WithAction(action).
		WithNarration(narration).
		BuildReconcile()
	if err != nil {
		return current, fmt.Errorf("%w: %w", ErrReconcileParse, err)
	}

	opts := services.GenerateOptions{
		Temperature: services.StateTemperature,
		MaxTokens:   DefaultStateMaxTokens,
		Timeout:     r.timeout,
	}

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			r.logger.Info("Retrying reconciliation", "attempt", attempt, "error", lastErr)
			if err := sleep(ctx, time.Duration(attempt-1)*r.backoff); err != nil {
				lastErr = err
				break
			}
		}

		text, err := r.gen.Generate(ctx, messages, opts)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) {
				break
			}
			continue
		}

		next, err := r.codec.ParseComplete(text)
		if err != nil {
			r.logger.Warn("Reconciled state rejected", "error", err, "response", text)
			return current, fmt.Errorf("%w: %w", ErrReconcileParse, err)
		}

		out := state.Repair(current, next)
		r.logger.Debug("World state reconciled",
			"attempt", attempt,
			"clock", out.Clock,
			"status", out.Status,
			"location", out.Player.Location)
		return out, nil
	}

	r.logger.Error("Reconciliation failed, keeping previous state", "attempts", r.attempts, "error", lastErr)
	return current, fmt.Errorf("%w: %w", ErrReconcileBackendExhausted, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
