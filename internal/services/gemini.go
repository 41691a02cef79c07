package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jwebster45206/tale-engine/pkg/chat"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiService is a remote Backend for the Google Gemini API.
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

// NewGeminiService dials the API with apiKey. Close releases the client.
func NewGeminiService(ctx context.Context, apiKey, modelName string, logger *slog.Logger, opts ...option.ClientOption) (*GeminiService, error) {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (g *GeminiService) Name() string { return "gemini" }

func (g *GeminiService) Remote() bool { return true }

// Close releases the underlying client.
func (g *GeminiService) Close() error {
	return g.client.Close()
}

// Generate runs a chat session seeded with all but the last turn.
func (g *GeminiService) Generate(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	system, history, last := toGeminiContents(messages)

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", backendError(g.Name(), 0, fmt.Errorf("failed to send message: %w", err))
	}

	text := geminiText(resp)
	if text == "" {
		return "", backendError(g.Name(), 0, ErrEmptyResponse)
	}
	g.logger.Debug("Completion received", "backend", g.Name(), "model", g.modelName)
	return text, nil
}

// toGeminiContents hoists system messages and splits the conversation into
// history and the final user text. Consecutive turns with the same role are
// merged.
func toGeminiContents(messages []chat.ChatMessage) (string, []*genai.Content, string) {
	var systemParts []string
	var turns []*genai.Content
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		role := "user"
		if msg.Role == chat.ChatRoleAgent {
			role = "model"
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, genai.Text(msg.Content))
			continue
		}
		turns = append(turns, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}

	system := strings.Join(systemParts, "\n\n")
	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return system, turns, "Continue."
	}

	lastTurn := turns[len(turns)-1]
	var texts []string
	for _, p := range lastTurn.Parts {
		if t, ok := p.(genai.Text); ok {
			texts = append(texts, string(t))
		}
	}
	return system, turns[:len(turns)-1], strings.Join(texts, "\n\n")
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
