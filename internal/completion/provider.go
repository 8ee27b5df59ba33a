package completion

import (
	"fmt"

	"github.com/cortexai/orderlens/internal/config"
)

// New builds the Service for cfg.LLMProvider. The provider is fixed for the
// life of the process.
func New(cfg *config.Config) (Service, error) {
	var (
		svc Service
		err error
	)
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		svc, err = NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			Model:          cfg.OpenAIModel,
			EmbeddingModel: cfg.OpenAIEmbeddingModel,
		})
	case config.ProviderDeepSeek:
		svc, err = NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.DeepSeekAPIKey,
			BaseURL:        cfg.DeepSeekBaseURL,
			Model:          cfg.DeepSeekModel,
			EmbeddingModel: cfg.DeepSeekEmbeddingModel,
		})
	case config.ProviderAnthropic:
		var embedder *OpenAIClient
		embedder, err = NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.EmbeddingAPIKey,
			BaseURL:        cfg.EmbeddingBaseURL,
			Model:          cfg.EmbeddingModel,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic embedder: %w", err)
		}
		var anthropicClient *AnthropicClient
		anthropicClient, err = NewAnthropicClient(AnthropicConfig{
			APIKey:    cfg.AnthropicAPIKey,
			BaseURL:   cfg.AnthropicBaseURL,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.AnthropicMaxTokens,
			Embedder:  embedder,
		})
		if err == nil {
			svc = anthropicClient
		}
	case "":
		return nil, fmt.Errorf("no LLM provider configured")
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}
