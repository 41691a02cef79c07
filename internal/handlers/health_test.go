package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/pkg/chat"
	"github.com/jwebster45206/tale-engine/pkg/storage"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))

	tests := []struct {
		name            string
		setupStorage    func() storage.Snapshotter
		setupGateway    func() *services.Gateway
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
		expectedMode    string
		expectedBackend string
	}{
		{
			name: "all healthy",
			setupStorage: func() storage.Snapshotter {
				return storage.NewMockStorage()
			},
			setupGateway: func() *services.Gateway {
				return services.NewGateway(services.NewMockLLMAPI(), nil, logger)
			},
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
			expectedMode:    "primary",
			expectedBackend: "mock",
		},
		{
			name: "unhealthy storage",
			setupStorage: func() storage.Snapshotter {
				mockStorage := storage.NewMockStorage()
				mockStorage.SetPingError(errors.New("connection failed"))
				return mockStorage
			},
			setupGateway: func() *services.Gateway {
				return services.NewGateway(services.NewMockLLMAPI(), nil, logger)
			},
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "unhealthy",
			expectedStorage: "unhealthy",
			expectedMode:    "primary",
			expectedBackend: "mock",
		},
		{
			name: "degraded gateway",
			setupStorage: func() storage.Snapshotter {
				return storage.NewMockStorage()
			},
			setupGateway: func() *services.Gateway {
				remote := services.NewMockLLMAPI()
				remote.BackendName = "anthropic"
				remote.IsRemote = true
				remote.SetGenerateError(errors.New("overloaded"))
				local := services.NewMockLLMAPI()
				local.BackendName = "local"

				gw := services.NewGateway(remote, local, logger)
				_, _ = gw.Generate(context.Background(), []chat.ChatMessage{chat.User("hi")}, services.GenerateOptions{})
				return gw
			},
			expectedStatus:  http.StatusOK,
			expectedHealth:  "degraded",
			expectedStorage: "healthy",
			expectedMode:    "degraded",
			expectedBackend: "local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupStorage(), tt.setupGateway(), logger)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if rr.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
			}

			var response HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if response.Status != tt.expectedHealth {
				t.Errorf("Expected status '%s', got '%s'", tt.expectedHealth, response.Status)
			}
			if response.Service != "tale-engine" {
				t.Errorf("Expected service 'tale-engine', got '%s'", response.Service)
			}
			if got := response.Components["storage"]; got != tt.expectedStorage {
				t.Errorf("Expected storage status '%s', got '%v'", tt.expectedStorage, got)
			}

			llm, ok := response.Components["llm"].(map[string]interface{})
			if !ok {
				t.Fatalf("Expected llm component to be a map, got %T", response.Components["llm"])
			}
			if llm["mode"] != tt.expectedMode {
				t.Errorf("Expected llm mode '%s', got '%v'", tt.expectedMode, llm["mode"])
			}
			if llm["backend"] != tt.expectedBackend {
				t.Errorf("Expected llm backend '%s', got '%v'", tt.expectedBackend, llm["backend"])
			}
		})
	}
}
