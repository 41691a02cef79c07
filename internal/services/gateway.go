package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jwebster45206/tale-engine/pkg/chat"
)

// Mode is the gateway's routing state.
type Mode int

const (
	// ModePrimary routes calls to the primary backend.
	ModePrimary Mode = iota
	// ModeDegraded routes calls to the local fallback after a remote failure.
	ModeDegraded
)

func (m Mode) String() string {
	if m == ModeDegraded {
		return "degraded"
	}
	return "primary"
}

// DowngradeEvent describes the one-time switch from a remote primary to the
// local fallback.
type DowngradeEvent struct {
	From  string
	To    string
	Cause error
	At    time.Time
}

// Gateway routes generation requests to a primary backend and, once that
// backend fails, to a local fallback for the rest of its lifetime. It does
// not retry.
type Gateway struct {
	primary  Backend
	fallback Backend
	logger   *slog.Logger

	mu          sync.Mutex
	mode        Mode
	onDowngrade func(DowngradeEvent)

	debug atomic.Bool
}

var _ Generator = (*Gateway)(nil)

// NewGateway creates a gateway. fallback may be nil, in which case primary
// failures are returned as-is. A local primary never fails over.
func NewGateway(primary, fallback Backend, logger *slog.Logger) *Gateway {
	return &Gateway{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// OnDowngrade registers a callback fired once when the gateway degrades.
func (g *Gateway) OnDowngrade(fn func(DowngradeEvent)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDowngrade = fn
}

// SetDebug toggles logging of full request and response bodies.
func (g *Gateway) SetDebug(on bool) { g.debug.Store(on) }

// Debug reports whether verbose logging is on.
func (g *Gateway) Debug() bool { return g.debug.Load() }

// Mode returns the current routing state.
func (g *Gateway) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Active returns the name of the backend currently serving calls.
func (g *Gateway) Active() string {
	return g.active().Name()
}

func (g *Gateway) active() Backend {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == ModeDegraded {
		return g.fallback
	}
	return g.primary
}

// Generate sends messages to the active backend. A remote primary failure
// degrades the gateway and the same call is served by the fallback.
func (g *Gateway) Generate(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error) {
	backend := g.active()
	text, err := g.call(ctx, backend, messages, opts)
	if err == nil {
		return text, nil
	}

	if !g.degrade(backend, err) {
		return "", err
	}
	return g.call(ctx, g.fallback, messages, opts)
}

func (g *Gateway) call(ctx context.Context, backend Backend, messages []chat.ChatMessage, opts GenerateOptions) (string, error) {
	if g.Debug() {
		g.logger.Info("Backend request", "backend", backend.Name(), "temperature", opts.Temperature, "messages", messages)
	}

	start := time.Now()
	text, err := backend.Generate(ctx, messages, opts)
	if err != nil {
		if !IsBackendError(err) {
			err = backendError(backend.Name(), 0, err)
		}
		g.logger.Warn("Backend call failed", "backend", backend.Name(), "error", err, "elapsed", time.Since(start))
		return "", err
	}

	if g.Debug() {
		g.logger.Info("Backend response", "backend", backend.Name(), "elapsed", time.Since(start), "response", text)
	}
	return text, nil
}

// degrade switches to the fallback if backend is the remote primary and the
// gateway has not degraded yet. It reports whether the call should be
// replayed on the fallback.
func (g *Gateway) degrade(backend Backend, cause error) bool {
	// A caller cancellation is not a backend outage.
	if errors.Is(cause, context.Canceled) {
		return false
	}

	g.mu.Lock()
	if g.fallback == nil || backend != g.primary || !g.primary.Remote() {
		g.mu.Unlock()
		return false
	}
	if g.mode == ModeDegraded {
		g.mu.Unlock()
		return true
	}
	g.mode = ModeDegraded
	ev := DowngradeEvent{
		From:  g.primary.Name(),
		To:    g.fallback.Name(),
		Cause: cause,
		At:    time.Now(),
	}
	fn := g.onDowngrade
	g.mu.Unlock()

	g.logger.Warn("Remote backend failed, switching to local backend", "from", ev.From, "to", ev.To, "error", cause)
	if fn != nil {
		fn(ev)
	}
	return true
}
