package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jwebster45206/tale-engine/pkg/storage"
)

// ScenarioSummary is one entry of GET /v1/scenarios.
type ScenarioSummary struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

type ScenarioHandler struct {
	log     *slog.Logger
	library storage.ScenarioLibrary
}

func NewScenarioHandler(log *slog.Logger, library storage.ScenarioLibrary) *ScenarioHandler {
	return &ScenarioHandler{
		log:     log,
		library: library,
	}
}

// ServeHTTP lists scenarios at /v1/scenarios and returns one at
// /v1/scenarios/{filename}.
func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScenarioHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}

	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	scenario, err := h.library.GetScenario(ctx, filename)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Scenario not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to get scenario", "error", err, "filename", filename)
		http.Error(w, "Failed to retrieve scenario", http.StatusInternalServerError)
		return
	}

	data, err := json.Marshal(scenario)
	if err != nil {
		h.log.Error("Failed to marshal scenario", "error", err, "filename", filename)
		http.Error(w, "Failed to process scenario", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.library.ListScenarios(r.Context())
	if err != nil {
		h.log.Error("Failed to list scenarios", "error", err)
		http.Error(w, "Failed to list scenarios", http.StatusInternalServerError)
		return
	}

	list := make([]ScenarioSummary, 0, len(scenarios))
	for name, filename := range scenarios {
		list = append(list, ScenarioSummary{Name: name, Filename: filename})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.log.Error("Failed to encode scenario list", "error", err)
	}
}
