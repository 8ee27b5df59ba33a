// Package completion is the boundary to the external language model: one
// chat-completion call with tool definitions, and text embeddings.
package completion

import (
	"context"
	"encoding/json"

	"github.com/cortexai/orderlens/internal/tools"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one provider-neutral chat message
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`

	// Native holds the provider's own form of an assistant message so it
	// can be replayed verbatim to the same provider.
	Native any `json:"-"`
}

// ToolCall is one tool invocation requested by the model
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Reply is the outcome of one completion call
type Reply struct {
	Text      string
	ToolCalls []ToolCall
	// Message is the assistant message that carried Text and ToolCalls
	Message Message
}

// Embedder turns texts into embedding vectors, one per text in order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Service is a configured language-model backend
type Service interface {
	Embedder
	Complete(ctx context.Context, messages []Message, descriptors []tools.Descriptor) (*Reply, error)
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolMessage answers the tool call identified by callID
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}
