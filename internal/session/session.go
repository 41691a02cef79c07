// Package session runs the turn loop for one game: narrate, reconcile,
// persist. A Session is not safe for concurrent use; callers that share one
// serialize access themselves.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tale-engine/internal/engine"
	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/scenario"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/storage"
	"github.com/jwebster45206/tale-engine/pkg/textfilter"
)

var (
	// ErrSessionAborted is returned after a panic during a turn was
	// recovered. The session accepts no further input.
	ErrSessionAborted = errors.New("session aborted")
	// ErrSessionClosed is returned for input after quit.
	ErrSessionClosed = errors.New("session closed")
)

// Messages shown to the player without a model call.
const (
	GoodbyeText          = "Thanks for playing. Goodbye!"
	NarrationFailedText  = "The narrator seems to have lost their voice. Nothing happens. Try again?"
	RestartText          = "Starting a brand new adventure..."
	debugOnText          = "Debug mode on."
	debugOffText         = "Debug mode off."
	defaultCallTimeout   = 60 * time.Second
	crashSnapshotTimeout = 5 * time.Second
)

// ReplyKind says what produced a reply.
type ReplyKind int

const (
	ReplyNone      ReplyKind = iota // empty input
	ReplyNarration                  // a narrated turn
	ReplyCommand                    // answered from state or a toggle
	ReplyRestart                    // a new game began
	ReplyQuit                       // the player left
	ReplyError                      // the turn was skipped
)

// Reply is what the presentation layer shows after one line of input.
type Reply struct {
	Kind     ReplyKind
	Text     string
	GameOver bool  // the world state is won or lost
	Err      error // non-fatal cause of a ReplyError
}

// Options configure one session.
type Options struct {
	Debug           bool
	Rating          textfilter.Rating
	DefaultScenario *scenario.Scenario // nil uses the built-in scenario
	Codec           state.Codec        // nil uses JSON

	ReconcileAttempts int
	ReconcileBackoff  time.Duration
	CallTimeout       time.Duration // per model call; 0 uses a default
}

// debugToggler is implemented by services.Gateway.
type debugToggler interface {
	SetDebug(on bool)
	Debug() bool
}

// Session owns the world state of one game.
type Session struct {
	id     uuid.UUID
	opts   Options
	store  storage.Snapshotter
	logger *slog.Logger

	debug      debugToggler
	narrator   *engine.Narrator
	extractor  *engine.Extractor
	reconciler *engine.Reconciler
	writer     *engine.ScenarioWriter

	ws       *state.WorldState
	scenario scenario.Scenario
	last     string
	closed   bool
	aborted  bool
}

// New creates a session that talks to gen and persists to store. store may
// be nil to disable persistence.
func New(gen services.Generator, store storage.Snapshotter, opts Options, logger *slog.Logger) *Session {
	if opts.Rating == "" {
		opts.Rating = textfilter.RatingPG13
	}
	if opts.Codec == nil {
		opts.Codec = state.JSONCodec{}
	}
	if opts.ReconcileAttempts <= 0 {
		opts.ReconcileAttempts = engine.DefaultReconcileAttempts
	}
	if opts.ReconcileBackoff <= 0 {
		opts.ReconcileBackoff = engine.DefaultReconcileBackoff
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}

	id := uuid.New()
	logger = logger.With("session_id", id.String())

	s := &Session{
		id:         id,
		opts:       opts,
		store:      store,
		logger:     logger,
		narrator:   engine.NewNarrator(gen, opts.Codec, logger).WithContentRating(opts.Rating).WithTimeout(opts.CallTimeout),
		extractor:  engine.NewExtractor(gen, opts.Codec, logger).WithTimeout(opts.CallTimeout),
		reconciler: engine.NewReconciler(gen, opts.Codec, logger).WithRetry(opts.ReconcileAttempts, opts.ReconcileBackoff).WithTimeout(opts.CallTimeout),
		writer:     engine.NewScenarioWriter(gen, logger).WithTimeout(opts.CallTimeout),
	}
	if d, ok := gen.(debugToggler); ok {
		s.debug = d
		d.SetDebug(opts.Debug)
	}
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns a copy of the current world state, or nil before Start.
func (s *Session) State() *state.WorldState { return s.ws.Clone() }

// LastNarration returns the most recent narration.
func (s *Session) LastNarration() string { return s.last }

// Scenario returns the scenario the current game was initialized from. It is
// zero for a restored game.
func (s *Session) Scenario() scenario.Scenario { return s.scenario }

// Closed reports whether the session accepts no more input.
func (s *Session) Closed() bool { return s.closed || s.aborted }

// Start restores the saved game if there is one, otherwise initializes a new
// game from sc (or the configured default), and narrates the opening.
func (s *Session) Start(ctx context.Context, sc *scenario.Scenario) (reply Reply, err error) {
	defer s.recoverTurn(&reply, &err)

	if restored := s.restore(ctx); restored != nil {
		s.ws = restored
		s.logger.Info("Restored saved game", "clock", s.ws.Clock, "location", s.ws.Player.Location, "status", s.ws.Status)
	} else {
		if sc == nil {
			sc = s.opts.DefaultScenario
		}
		if sc == nil {
			def := scenario.Default()
			sc = &def
		}
		s.initialize(ctx, *sc)
	}
	return s.opening(ctx), nil
}

// HandleInput processes one line of player input.
func (s *Session) HandleInput(ctx context.Context, line string) (reply Reply, err error) {
	if s.aborted {
		return Reply{Kind: ReplyQuit}, ErrSessionAborted
	}
	if s.closed {
		return Reply{Kind: ReplyQuit}, ErrSessionClosed
	}
	if s.ws == nil {
		return Reply{}, fmt.Errorf("session not started")
	}
	defer s.recoverTurn(&reply, &err)

	switch parseCommand(line) {
	case cmdQuit:
		s.closed = true
		s.logger.Info("Player quit")
		return Reply{Kind: ReplyQuit, Text: GoodbyeText}, nil
	case cmdRestart:
		reply := s.Restart(ctx)
		if s.aborted {
			return reply, reply.Err
		}
		return reply, nil
	case cmdDebug:
		return s.toggleDebug(), nil
	case cmdLook:
		return Reply{Kind: ReplyCommand, Text: s.ws.DescribeLocation(), GameOver: s.gameOver()}, nil
	case cmdInventory:
		return Reply{Kind: ReplyCommand, Text: s.ws.DescribeInventory(), GameOver: s.gameOver()}, nil
	}

	action := strings.TrimSpace(line)
	if action == "" {
		return Reply{Kind: ReplyNone, GameOver: s.gameOver()}, nil
	}
	return s.turn(ctx, action), nil
}

// Restart discards the current game, writes a new scenario and starts over.
func (s *Session) Restart(ctx context.Context) Reply {
	return s.NewGame(ctx, nil)
}

// NewGame discards the current game and starts sc, or a freshly written
// scenario when sc is nil. It also revives a session aborted by a panic. A
// panic during NewGame aborts the session again and is reported in Reply.Err.
func (s *Session) NewGame(ctx context.Context, sc *scenario.Scenario) (reply Reply) {
	var err error
	defer func() {
		if err != nil {
			reply.Err = err
		}
	}()
	defer s.recoverTurn(&reply, &err)

	s.logger.Info("Restarting game", "was_aborted", s.aborted)
	if s.store != nil {
		if err := s.store.Delete(ctx); err != nil {
			s.logger.Warn("Failed to delete snapshot", "error", err)
		}
	}
	if sc == nil {
		written := s.writer.Write(ctx)
		sc = &written
	}
	s.closed = false
	s.aborted = false
	s.initialize(ctx, *sc)
	reply = s.opening(ctx)
	if reply.Kind == ReplyNarration {
		reply.Kind = ReplyRestart
	}
	reply.Text = RestartText + "\n\n" + reply.Text
	return reply
}

func (s *Session) turn(ctx context.Context, action string) Reply {
	start := time.Now()

	narration, err := s.narrator.Narrate(ctx, s.ws, action, s.last)
	if err != nil {
		s.logger.Warn("Turn skipped", "action", action, "error", err)
		return Reply{Kind: ReplyError, Text: NarrationFailedText, Err: err, GameOver: s.gameOver()}
	}

	next, err := s.reconciler.Reconcile(ctx, s.ws, action, narration)
	if err != nil {
		s.logger.Warn("World state not updated", "action", action, "error", err)
	}
	s.ws = next
	s.last = narration
	s.persist(ctx)

	s.logger.Debug("Turn complete",
		"action", action,
		"clock", s.ws.Clock,
		"status", s.ws.Status,
		"elapsed", time.Since(start))
	return Reply{Kind: ReplyNarration, Text: narration, GameOver: s.gameOver()}
}

func (s *Session) initialize(ctx context.Context, sc scenario.Scenario) {
	s.scenario = sc
	if r, err := textfilter.ParseRating(sc.Rating); err == nil {
		s.narrator.WithContentRating(r)
	} else {
		s.narrator.WithContentRating(s.opts.Rating)
	}
	s.ws = s.extractor.ExtractInitialState(ctx, sc.Story)
	s.last = ""
	s.logger.Info("New game initialized", "scenario", sc.Name, "objective", s.ws.Objective, "location", s.ws.Player.Location)
	s.persist(ctx)
}

func (s *Session) opening(ctx context.Context) Reply {
	narration, err := s.narrator.Narrate(ctx, s.ws, "", "")
	if err != nil {
		s.logger.Warn("Opening narration failed", "error", err)
		return Reply{Kind: ReplyError, Text: NarrationFailedText, Err: err, GameOver: s.gameOver()}
	}
	s.last = narration
	return Reply{Kind: ReplyNarration, Text: narration, GameOver: s.gameOver()}
}

func (s *Session) restore(ctx context.Context) *state.WorldState {
	if s.store == nil {
		return nil
	}
	ws, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("Ignoring unreadable snapshot", "error", err)
		return nil
	}
	if ws == nil {
		return nil
	}
	if err := ws.Validate(); err != nil {
		s.logger.Warn("Ignoring invalid snapshot", "error", err)
		return nil
	}
	return state.Normalize(ws)
}

// persist saves the current state. Failures are logged and never block play.
func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.ws); err != nil {
		s.logger.Error("Failed to save snapshot", "error", err)
	}
}

func (s *Session) toggleDebug() Reply {
	on := !s.opts.Debug
	if s.debug != nil {
		on = !s.debug.Debug()
		s.debug.SetDebug(on)
	}
	s.opts.Debug = on
	s.logger.Info("Debug toggled", "debug", on)
	if on {
		return Reply{Kind: ReplyCommand, Text: debugOnText, GameOver: s.gameOver()}
	}
	return Reply{Kind: ReplyCommand, Text: debugOffText, GameOver: s.gameOver()}
}

// Debug reports whether verbose backend logging is on.
func (s *Session) Debug() bool {
	if s.debug != nil {
		return s.debug.Debug()
	}
	return s.opts.Debug
}

func (s *Session) gameOver() bool {
	return s.ws != nil && s.ws.Status.IsTerminal()
}

// recoverTurn turns a panic into ErrSessionAborted after writing a forensic
// snapshot of the last good state.
func (s *Session) recoverTurn(reply *Reply, err *error) {
	r := recover()
	if r == nil {
		return
	}
	s.aborted = true
	crashID := uuid.New()
	s.logger.Error("Recovered from panic during turn", "panic", r, "crash_id", crashID.String())

	if s.store != nil && s.ws != nil {
		ctx, cancel := context.WithTimeout(context.Background(), crashSnapshotTimeout)
		defer cancel()
		where, saveErr := s.store.SaveCrash(ctx, crashID, s.ws)
		if saveErr != nil {
			s.logger.Error("Failed to write crash snapshot", "error", saveErr)
		} else {
			s.logger.Error("Crash snapshot written", "location", where)
		}
	}

	*reply = Reply{Kind: ReplyQuit, Text: "Something went badly wrong. Your progress up to the last turn was saved."}
	*err = fmt.Errorf("%w: %v", ErrSessionAborted, r)
}
