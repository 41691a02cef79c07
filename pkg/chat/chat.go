package chat

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator or model output
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage represents a single role-tagged message sent to a model backend.
// The shape matches the OpenAI-compatible chat API and is translated by
// backends that use a different wire format.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleSystem, Content: content}
}

// User builds a user message.
func User(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleUser, Content: content}
}

// Agent builds an assistant message.
func Agent(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleAgent, Content: content}
}
