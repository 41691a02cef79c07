package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/storage"
)

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Service    string                 `json:"service"`
	Components map[string]interface{} `json:"components"`
}

// BackendStatus reports which backend is serving model calls.
type BackendStatus interface {
	Mode() services.Mode
	Active() string
}

type HealthHandler struct {
	storage storage.Snapshotter
	backend BackendStatus
	logger  *slog.Logger
}

func NewHealthHandler(storage storage.Snapshotter, backend BackendStatus, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		backend: backend,
		logger:  logger,
	}
}

// ServeHTTP reports storage reachability and the gateway mode. Only a storage
// failure makes the service unavailable; a degraded gateway still serves.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]interface{})
	overallStatus := "healthy"
	statusCode := http.StatusOK

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else {
		components["storage"] = "healthy"
	}

	if h.backend != nil {
		mode := h.backend.Mode()
		components["llm"] = map[string]string{
			"backend": h.backend.Active(),
			"mode":    mode.String(),
		}
		if mode == services.ModeDegraded && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "tale-engine",
		Components: components,
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
