package completion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cortexai/orderlens/internal/config"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(OpenAIConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1/",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
	})
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_CompleteWithToolCalls(t *testing.T) {
	var got map[string]interface{}
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"query_orders","arguments":"{\"customerName\":\"Alice\"}"}}
		]}}]}`)
	})

	reply, err := c.Complete(context.Background(),
		[]Message{SystemMessage("sys"), UserMessage("orders for Alice?")},
		tools.Descriptors())
	require.NoError(t, err)

	assert.Empty(t, reply.Text)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "call_1", reply.ToolCalls[0].ID)
	assert.Equal(t, tools.NameQueryOrders, reply.ToolCalls[0].Name)
	assert.JSONEq(t, `{"customerName":"Alice"}`, string(reply.ToolCalls[0].Arguments))
	assert.Equal(t, RoleAssistant, reply.Message.Role)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, "auto", got["tool_choice"])
	assert.Len(t, got["tools"], 2)
	msgs := got["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
}

func TestOpenAIClient_SynthesisPromptShape(t *testing.T) {
	var got struct {
		Messages []map[string]interface{} `json:"messages"`
	}
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Alice has one order."}}]}`)
	})

	assistant := Message{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{ID: "call_1", Name: "query_orders", Arguments: json.RawMessage(`{}`)}},
	}
	reply, err := c.Complete(context.Background(), []Message{
		SystemMessage("sys"),
		UserMessage("q"),
		assistant,
		ToolMessage("call_1", "[]"),
	}, tools.Descriptors())
	require.NoError(t, err)
	assert.Equal(t, "Alice has one order.", reply.Text)
	assert.Empty(t, reply.ToolCalls)

	require.Len(t, got.Messages, 4)
	_, hasContent := got.Messages[2]["content"]
	assert.True(t, hasContent)
	assert.Nil(t, got.Messages[2]["content"])
	calls := got.Messages[2]["tool_calls"].([]interface{})
	require.Len(t, calls, 1)
	assert.Equal(t, "tool", got.Messages[3]["role"])
	assert.Equal(t, "call_1", got.Messages[3]["tool_call_id"])
	assert.Equal(t, "[]", got.Messages[3]["content"])
}

func TestOpenAIClient_CompleteErrorStatus(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := c.Complete(context.Background(), []Message{UserMessage("q")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}

func TestOpenAIClient_CompleteNoChoices(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	_, err := c.Complete(context.Background(), []Message{UserMessage("q")}, nil)
	assert.Error(t, err)
}

func TestOpenAIClient_Embed(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)
		_, _ = io.WriteString(w, `{"data":[
			{"index":1,"embedding":[0.3,0.4]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`)
	})

	vectors, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, vectors[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0.3, 0.4}, vectors[1], 1e-6)
}

func TestOpenAIClient_EmbedCountMismatch(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})

	_, err := c.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{BaseURL: "http://x", Model: "m"})
	assert.Error(t, err)
}

func TestNew_SelectsProvider(t *testing.T) {
	svc, err := New(&config.Config{
		LLMProvider:            config.ProviderDeepSeek,
		DeepSeekAPIKey:         "k",
		DeepSeekBaseURL:        config.DefaultDeepSeekBaseURL,
		DeepSeekModel:          config.DefaultDeepSeekModel,
		DeepSeekEmbeddingModel: config.DefaultDeepSeekEmbeddingModel,
	})
	require.NoError(t, err)
	oa, ok := svc.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "https://api.deepseek.com/v1", oa.baseURL)
	assert.Equal(t, "deepseek-chat", oa.model)

	svc, err = New(&config.Config{
		LLMProvider:      config.ProviderAnthropic,
		AnthropicAPIKey:  "k",
		EmbeddingAPIKey:  "e",
		EmbeddingBaseURL: config.DefaultOpenAIBaseURL,
		EmbeddingModel:   config.DefaultOpenAIEmbeddingModel,
	})
	require.NoError(t, err)
	_, ok = svc.(*AnthropicClient)
	assert.True(t, ok)

	_, err = New(&config.Config{LLMProvider: "bogus"})
	assert.Error(t, err)
	_, err = New(&config.Config{})
	assert.Error(t, err)
}

func TestNew_AnthropicWithoutAPIKey(t *testing.T) {
	svc, err := New(&config.Config{
		LLMProvider:      config.ProviderAnthropic,
		EmbeddingAPIKey:  "e",
		EmbeddingBaseURL: config.DefaultOpenAIBaseURL,
		EmbeddingModel:   config.DefaultOpenAIEmbeddingModel,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
	assert.Nil(t, svc)
}

func TestToAnthropicMessages_MergesToolResults(t *testing.T) {
	system, msgs, err := toAnthropicMessages([]Message{
		SystemMessage("sys"),
		UserMessage("q"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "t1", Name: "retrieve_context", Arguments: json.RawMessage(`{"query":"refunds"}`)},
			{ID: "t2", Name: "query_orders", Arguments: json.RawMessage(`{}`)},
		}},
		ToolMessage("t1", "snippet"),
		ToolMessage("t2", "error: boom"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	// user, assistant, one merged tool_result turn
	assert.Len(t, msgs, 3)
}

func TestToAnthropicMessages_RejectsUnknownRole(t *testing.T) {
	_, _, err := toAnthropicMessages([]Message{{Role: "function", Content: "x"}})
	assert.Error(t, err)
}
