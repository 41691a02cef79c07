package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/tale-engine/internal/logger"
	"github.com/jwebster45206/tale-engine/internal/session"
	"github.com/jwebster45206/tale-engine/pkg/scenario"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// TurnRequest is the body of POST /v1/turn.
type TurnRequest struct {
	Action string `json:"action"`
}

// RestartRequest is the optional body of POST /v1/restart. Scenario names a
// file in the scenario library; empty asks the model for a new one.
type RestartRequest struct {
	Scenario string `json:"scenario,omitempty"`
}

// TurnResponse is returned by the turn and restart endpoints.
type TurnResponse struct {
	Narration string            `json:"narration"`
	State     *state.WorldState `json:"state"`
	Ended     bool              `json:"ended"`
	Error     string            `json:"error,omitempty"`
}

// GameHandler exposes one session over HTTP. Turns are serialized.
type GameHandler struct {
	mu      sync.Mutex
	sess    *session.Session
	library storage.ScenarioLibrary
	logger  *slog.Logger
}

// NewGameHandler serves sess, which must already be started. library may be
// nil.
func NewGameHandler(sess *session.Session, library storage.ScenarioLibrary, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		sess:    sess,
		library: library,
		logger:  logger,
	}
}

// ServeHTTP handles game requests
// Routes:
// GET  /v1/state   - Current world state
// POST /v1/turn    - Play one action
// POST /v1/restart - Start a new game
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log := logger.WithRequestID(h.logger, uuid.NewString())

	route := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case route == "/v1/state" && r.Method == http.MethodGet:
		h.handleState(w, log)
	case route == "/v1/turn" && r.Method == http.MethodPost:
		h.handleTurn(w, r, log)
	case route == "/v1/restart" && r.Method == http.MethodPost:
		h.handleRestart(w, r, log)
	case route == "/v1/state" || route == "/v1/turn" || route == "/v1/restart":
		log.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"}, log)
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found"}, log)
	}
}

func (h *GameHandler) handleState(w http.ResponseWriter, log *slog.Logger) {
	h.mu.Lock()
	ws := h.sess.State()
	h.mu.Unlock()

	if ws == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "No game in progress"}, log)
		return
	}
	writeJSON(w, http.StatusOK, ws, log)
}

func (h *GameHandler) handleTurn(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body. Expected JSON with 'action' field."}, log)
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Action cannot be empty."}, log)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	reply, err := h.sess.HandleInput(r.Context(), req.Action)
	if err != nil {
		log.Error("Turn rejected", "error", err)
		status := http.StatusConflict
		if errors.Is(err, session.ErrSessionAborted) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, TurnResponse{
			Narration: reply.Text,
			State:     h.sess.State(),
			Ended:     true,
			Error:     err.Error(),
		}, log)
		return
	}

	resp := TurnResponse{
		Narration: reply.Text,
		State:     h.sess.State(),
		Ended:     reply.GameOver || reply.Kind == session.ReplyQuit,
	}
	status := http.StatusOK
	if reply.Kind == session.ReplyError {
		status = http.StatusBadGateway
		if reply.Err != nil {
			resp.Error = reply.Err.Error()
		}
	}
	log.Info("Turn played", "action", req.Action, "kind", reply.Kind, "ended", resp.Ended)
	writeJSON(w, status, resp, log)
}

func (h *GameHandler) handleRestart(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	var req RestartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("Invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body."}, log)
		return
	}

	var sc *scenario.Scenario
	if req.Scenario != "" {
		if h.library == nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No scenario library configured."}, log)
			return
		}
		loaded, err := h.library.GetScenario(r.Context(), req.Scenario)
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Scenario not found"}, log)
				return
			}
			log.Error("Failed to get scenario", "error", err, "filename", req.Scenario)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve scenario"}, log)
			return
		}
		sc = loaded
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	reply := h.sess.NewGame(r.Context(), sc)
	if errors.Is(reply.Err, session.ErrSessionAborted) {
		log.Error("Restart aborted", "error", reply.Err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: reply.Text}, log)
		return
	}
	resp := TurnResponse{
		Narration: reply.Text,
		State:     h.sess.State(),
		Ended:     reply.GameOver,
	}
	if reply.Err != nil {
		resp.Error = reply.Err.Error()
	}
	log.Info("Game restarted", "scenario", h.sess.Scenario().Name)
	writeJSON(w, http.StatusOK, resp, log)
}

func writeJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error encoding response", "error", err)
	}
}
