package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/rs/zerolog"
)

// AnthropicConfig configures the Anthropic Messages backend. Anthropic has no
// embeddings endpoint, so Embedder must be supplied separately.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string // override for custom proxy
	Model     string
	MaxTokens int
	Embedder  Embedder
}

// AnthropicClient wraps the Anthropic SDK for single-shot tool-calling completions
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	embedder  Embedder
}

var _ Service = (*AnthropicClient)(nil)

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic client: api key is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("anthropic client: embedder is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-6"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		embedder:  cfg.Embedder,
	}, nil
}

// Complete maps the neutral conversation onto one Messages API call. System
// messages become the system prompt and consecutive tool messages are merged
// into a single user turn of tool_result blocks.
func (a *AnthropicClient) Complete(ctx context.Context, messages []Message, descriptors []tools.Descriptor) (*Reply, error) {
	system, params, err := toAnthropicMessages(messages)
	if err != nil {
		return nil, err
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(a.model)),
		MaxTokens: anthropic.F(int64(a.maxTokens)),
		Messages:  anthropic.F(params),
	}
	if len(descriptors) > 0 {
		req.Tools = anthropic.F(toAnthropicTools(descriptors))
	}
	if system != "" {
		req.System = anthropic.F([]anthropic.TextBlockParam{anthropic.NewTextBlock(system)})
	}

	resp, err := a.client.Messages.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	reply := &Reply{}
	var text strings.Builder
	for _, block := range resp.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			args := b.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	reply.Text = text.String()
	reply.Message = Message{
		Role:      RoleAssistant,
		Content:   reply.Text,
		ToolCalls: reply.ToolCalls,
		Native:    resp.ToParam(),
	}

	zerolog.Ctx(ctx).Debug().
		Str("stop_reason", string(resp.StopReason)).
		Int("tool_calls", len(reply.ToolCalls)).
		Msg("anthropic completion")
	return reply, nil
}

// Embed delegates to the configured OpenAI-compatible embedder
func (a *AnthropicClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return a.embedder.Embed(ctx, texts)
}

func toAnthropicTools(descriptors []tools.Descriptor) []anthropic.ToolUnionUnionParam {
	out := make([]anthropic.ToolUnionUnionParam, len(descriptors))
	for i, d := range descriptors {
		schema := map[string]interface{}{
			"type":       "object",
			"properties": d.Parameters["properties"],
		}
		if required, ok := d.Parameters["required"]; ok {
			schema["required"] = required
		}
		out[i] = anthropic.ToolParam{
			Name:        anthropic.String(d.Name),
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.F[interface{}](schema),
		}
	}
	return out
}

func toAnthropicMessages(messages []Message) (string, []anthropic.MessageParam, error) {
	var system []string
	var out []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range messages {
		if m.Role != RoleTool {
			flush()
		}
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			if native, ok := m.Native.(anthropic.MessageParam); ok {
				out = append(out, native)
				continue
			}
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input interface{} = map[string]interface{}{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						return "", nil, fmt.Errorf("tool call %s arguments: %w", tc.ID, err)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlockParam(tc.ID, tc.Name, input))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			isError := strings.HasPrefix(m.Content, "error: ")
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, isError))
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	flush()

	return strings.Join(system, "\n\n"), out, nil
}
