package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/tale-engine/pkg/chat"
)

const (
	DefaultLocalBaseURL   = "http://localhost:1234/v1"
	DefaultLocalModel     = "gemma-3-4b-it"
	DefaultLocalMaxTokens = 1024
)

// OpenAIService talks to any OpenAI-compatible chat completions endpoint:
// LM Studio, Ollama, llama.cpp, or a hosted API when a key is set.
type OpenAIService struct {
	baseURL    string
	apiKey     string
	modelName  string
	remote     bool
	httpClient *http.Client
	logger     *slog.Logger
}

// OpenAIChatRequest is the body POSTed to /chat/completions.
type OpenAIChatRequest struct {
	Model       string             `json:"model,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Stream      bool               `json:"stream"`
}

type OpenAIChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type OpenAIChatResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []OpenAIChatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates a backend for baseURL. An empty apiKey sends no
// Authorization header. timeout bounds every HTTP request.
func NewOpenAIService(baseURL, apiKey, modelName string, timeout time.Duration, logger *slog.Logger) *OpenAIService {
	if baseURL == "" {
		baseURL = DefaultLocalBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// AsRemote marks the service as a hosted API so a Gateway may fail over
// from it.
func (o *OpenAIService) AsRemote() *OpenAIService {
	o.remote = true
	return o
}

func (o *OpenAIService) Name() string {
	if o.remote {
		return "openai"
	}
	return "local"
}

func (o *OpenAIService) Remote() bool { return o.remote }

// Generate sends one non-streaming chat completion request.
func (o *OpenAIService) Generate(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultLocalMaxTokens
	}
	reqBody, err := json.Marshal(OpenAIChatRequest{
		Model:       o.modelName,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", backendError(o.Name(), 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", backendError(o.Name(), 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", backendError(o.Name(), 0, fmt.Errorf("failed to make request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", backendError(o.Name(), resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", backendError(o.Name(), resp.StatusCode, fmt.Errorf("request failed: %s", truncate(string(body), 512)))
	}

	var chatResp OpenAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", backendError(o.Name(), resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}
	if chatResp.Error != nil {
		return "", backendError(o.Name(), resp.StatusCode, fmt.Errorf("API error: %s", chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 {
		return "", backendError(o.Name(), resp.StatusCode, ErrEmptyResponse)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", backendError(o.Name(), resp.StatusCode, ErrEmptyResponse)
	}

	o.logger.Debug("Completion received", "backend", o.Name(), "model", chatResp.Model, "finish_reason", chatResp.Choices[0].FinishReason)
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
