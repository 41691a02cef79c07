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
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicModel     = "claude-3-5-haiku-latest"
	DefaultAnthropicMaxTokens = 2048
)

// AnthropicService is a remote Backend for the Anthropic Messages API.
type AnthropicService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicService creates the backend. An empty modelName selects
// DefaultAnthropicModel.
func NewAnthropicService(apiKey, modelName string, timeout time.Duration, logger *slog.Logger) *AnthropicService {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &AnthropicService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   anthropicBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// WithBaseURL points the service at another host, such as a proxy or a test server.
func (a *AnthropicService) WithBaseURL(baseURL string) *AnthropicService {
	a.baseURL = strings.TrimRight(baseURL, "/")
	return a
}

func (a *AnthropicService) Name() string { return "anthropic" }

func (a *AnthropicService) Remote() bool { return true }

// splitChatMessages hoists all system messages into a single system prompt
// and returns the remaining conversation.
func (a *AnthropicService) splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var conversation []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			conversation = append(conversation, msg)
		}
	}

	return strings.Join(systemParts, "\n\n"), conversation
}

// Generate sends one Messages API request.
func (a *AnthropicService) Generate(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	systemPrompt, conversation := a.splitChatMessages(messages)
	if len(conversation) == 0 {
		// The API rejects a request with no turns.
		conversation = []chat.ChatMessage{chat.User("Begin.")}
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}
	temperature := opts.Temperature
	anthropicReq := AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      systemPrompt,
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return "", backendError(a.Name(), 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", backendError(a.Name(), 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", backendError(a.Name(), 0, fmt.Errorf("failed to make request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", backendError(a.Name(), resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", backendError(a.Name(), resp.StatusCode, fmt.Errorf("request failed: %s", truncate(string(body), 512)))
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", backendError(a.Name(), resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}
	if anthropicResp.Error != nil {
		return "", backendError(a.Name(), resp.StatusCode, fmt.Errorf("API error: %s", anthropicResp.Error.Message))
	}

	var sb strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", backendError(a.Name(), resp.StatusCode, ErrEmptyResponse)
	}

	a.logger.Debug("Completion received", "backend", a.Name(), "model", anthropicResp.Model,
		"input_tokens", anthropicResp.Usage.InputTokens, "output_tokens", anthropicResp.Usage.OutputTokens)
	return text, nil
}
