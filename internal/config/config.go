package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	APIPrefix   string `mapstructure:"api_prefix"`
	LogLevel    string `mapstructure:"log_level"`

	// CORS
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Auth
	APIKeyHeader string   `mapstructure:"api_key_header"`
	APIKeys      []string `mapstructure:"api_keys"`
	EnableAuth   bool     `mapstructure:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`

	// Agent
	AgentTimeout           int  `mapstructure:"agent_timeout"` // seconds
	ToolDispatchConcurrent bool `mapstructure:"tool_dispatch_concurrent"`
	EnableAuditLogging     bool `mapstructure:"enable_audit_logging"`
	MaxPromptLength        int  `mapstructure:"max_prompt_length"`

	// AI / LLM
	LLMProvider             string `mapstructure:"llm_provider"`
	OpenAIAPIKey            string `mapstructure:"openai_api_key"`
	OpenAIBaseURL           string `mapstructure:"openai_base_url"`
	OpenAIModel             string `mapstructure:"openai_model"`
	OpenAIEmbeddingModel    string `mapstructure:"openai_embedding_model"`
	DeepSeekAPIKey          string `mapstructure:"deepseek_api_key"`
	DeepSeekBaseURL         string `mapstructure:"deepseek_base_url"`
	DeepSeekModel           string `mapstructure:"deepseek_model"`
	DeepSeekEmbeddingModel  string `mapstructure:"deepseek_embedding_model"`
	AnthropicAPIKey         string `mapstructure:"anthropic_api_key"`
	AnthropicBaseURL        string `mapstructure:"anthropic_base_url"` // override for custom proxy
	AnthropicModel          string `mapstructure:"anthropic_model"`
	AnthropicMaxTokens      int    `mapstructure:"anthropic_max_tokens"`
	EmbeddingAPIKey         string `mapstructure:"embedding_api_key"` // OpenAI-compatible embedder used with anthropic
	EmbeddingBaseURL        string `mapstructure:"embedding_base_url"`
	EmbeddingModel          string `mapstructure:"embedding_model"`

	// Vector store
	VectorStore              string `mapstructure:"vector_store"`
	ElasticsearchHost        string `mapstructure:"elasticsearch_host"`
	ElasticsearchPort        int    `mapstructure:"elasticsearch_port"`
	ElasticsearchScheme      string `mapstructure:"elasticsearch_scheme"`
	ElasticsearchUser        string `mapstructure:"elasticsearch_user"`
	ElasticsearchPassword    string `mapstructure:"elasticsearch_password"`
	ElasticsearchVerifyCerts bool   `mapstructure:"elasticsearch_verify_certs"`
	ElasticsearchMaxRetries  int    `mapstructure:"elasticsearch_max_retries"`
	VectorIndex              string `mapstructure:"vector_index"`
	VectorNamespace          string `mapstructure:"vector_namespace"`
	EmbeddingDims            int    `mapstructure:"embedding_dims"`

	// Order store
	OrderStore                   string `mapstructure:"order_store"`
	DatabaseURL                  string `mapstructure:"database_url"`
	GCPProjectID                 string `mapstructure:"gcp_project_id"`
	GoogleApplicationCredentials string `mapstructure:"google_application_credentials"`
	BigQueryLocation             string `mapstructure:"bigquery_location"`
	BigQueryDataset              string `mapstructure:"bigquery_dataset"`
	BigQueryOrdersTable          string `mapstructure:"bigquery_orders_table"`

	// Retrieval cache
	RetrievalCacheTTL      int `mapstructure:"retrieval_cache_ttl"` // seconds
	RetrievalCacheCapacity int `mapstructure:"retrieval_cache_capacity"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Environment:              DefaultEnvironment,
		APIPrefix:                DefaultAPIPrefix,
		LogLevel:                 DefaultLogLevel,
		CORSOrigins:              DefaultCORSOrigins,
		APIKeyHeader:             "X-API-Key",
		EnableAuth:               false,
		RateLimitPerMinute:       DefaultRateLimitPerMinute,
		AgentTimeout:             DefaultAgentTimeout,
		EnableAuditLogging:       true,
		MaxPromptLength:          DefaultMaxPromptLength,
		OpenAIBaseURL:            DefaultOpenAIBaseURL,
		OpenAIModel:              DefaultOpenAIModel,
		OpenAIEmbeddingModel:     DefaultOpenAIEmbeddingModel,
		DeepSeekBaseURL:          DefaultDeepSeekBaseURL,
		DeepSeekModel:            DefaultDeepSeekModel,
		DeepSeekEmbeddingModel:   DefaultDeepSeekEmbeddingModel,
		AnthropicModel:           DefaultAnthropicModel,
		AnthropicMaxTokens:       DefaultAnthropicMaxTokens,
		EmbeddingBaseURL:         DefaultOpenAIBaseURL,
		EmbeddingModel:           DefaultOpenAIEmbeddingModel,
		VectorStore:              DefaultVectorStore,
		ElasticsearchHost:        "localhost",
		ElasticsearchPort:        DefaultElasticsearchPort,
		ElasticsearchScheme:      DefaultElasticsearchScheme,
		ElasticsearchVerifyCerts: true,
		ElasticsearchMaxRetries:  DefaultElasticsearchMaxRetries,
		VectorIndex:              DefaultVectorIndex,
		VectorNamespace:          DefaultVectorNamespace,
		EmbeddingDims:            DefaultEmbeddingDims,
		OrderStore:               DefaultOrderStore,
		BigQueryLocation:         DefaultBigQueryLocation,
		BigQueryOrdersTable:      DefaultBigQueryOrdersTable,
		RetrievalCacheTTL:        DefaultRetrievalCacheTTL,
		RetrievalCacheCapacity:   DefaultRetrievalCacheCapacity,
	}

	// Load from config file (JSON, YAML or TOML) if specified
	if path := getEnv("ORDERLENS_CONFIG", ""); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Environment overrides
	applyEnvOverrides(cfg)

	if cfg.LLMProvider == "" {
		cfg.LLMProvider = inferProvider(cfg)
	}
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// inferProvider picks a provider from whichever credential is present.
// DeepSeek wins over OpenAI, which wins over Anthropic.
func inferProvider(cfg *Config) string {
	switch {
	case cfg.DeepSeekAPIKey != "":
		return ProviderDeepSeek
	case cfg.OpenAIAPIKey != "":
		return ProviderOpenAI
	case cfg.AnthropicAPIKey != "":
		return ProviderAnthropic
	}
	return ""
}

// Validate reports settings the service cannot start without
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for provider openai"))
		}
	case ProviderDeepSeek:
		if c.DeepSeekAPIKey == "" {
			errs = append(errs, errors.New("DEEPSEEK_API_KEY is required for provider deepseek"))
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for provider anthropic"))
		}
		if c.EmbeddingAPIKey == "" {
			errs = append(errs, errors.New("EMBEDDING_API_KEY is required for provider anthropic"))
		}
	case "":
		errs = append(errs, errors.New("no LLM credentials: set OPENAI_API_KEY, DEEPSEEK_API_KEY or ANTHROPIC_API_KEY"))
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.VectorStore {
	case VectorStoreElasticsearch:
		if c.ElasticsearchHost == "" {
			errs = append(errs, errors.New("ELASTICSEARCH_HOST is required for vector store elasticsearch"))
		}
		if c.EmbeddingDims <= 0 {
			errs = append(errs, errors.New("EMBEDDING_DIMS must be positive"))
		}
	case VectorStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_STORE %q", c.VectorStore))
	}

	switch c.OrderStore {
	case OrderStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for order store postgres"))
		}
	case OrderStoreBigQuery:
		if c.GCPProjectID == "" || c.BigQueryDataset == "" {
			errs = append(errs, errors.New("GCP_PROJECT_ID and BIGQUERY_DATASET are required for order store bigquery"))
		}
	case OrderStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown ORDER_STORE %q", c.OrderStore))
	}

	if c.EnableAuth && len(c.APIKeys) == 0 {
		errs = append(errs, errors.New("ORDERLENS_API_KEYS is required when ENABLE_AUTH is set"))
	}

	return errors.Join(errs...)
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Host, "ORDERLENS_HOST")
	setInt(&cfg.Port, "PORT")
	setInt(&cfg.Port, "ORDERLENS_PORT")
	setString(&cfg.Environment, "ORDERLENS_ENV")
	setString(&cfg.LogLevel, "ORDERLENS_LOG_LEVEL")
	setString(&cfg.APIPrefix, "ORDERLENS_API_PREFIX")
	if v := getEnv("ORDERLENS_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("ORDERLENS_CORS_ORIGINS", ""); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
	setBool(&cfg.EnableAuth, "ENABLE_AUTH")
	setInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")

	setInt(&cfg.AgentTimeout, "AGENT_TIMEOUT")
	setBool(&cfg.ToolDispatchConcurrent, "TOOL_DISPATCH_CONCURRENT")
	setBool(&cfg.EnableAuditLogging, "ENABLE_AUDIT_LOGGING")
	setInt(&cfg.MaxPromptLength, "MAX_PROMPT_LENGTH")

	setString(&cfg.LLMProvider, "LLM_PROVIDER")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.OpenAIEmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&cfg.DeepSeekAPIKey, "DEEPSEEK_API_KEY")
	setString(&cfg.DeepSeekBaseURL, "DEEPSEEK_BASE_URL")
	setString(&cfg.DeepSeekModel, "DEEPSEEK_MODEL")
	setString(&cfg.DeepSeekEmbeddingModel, "DEEPSEEK_EMBEDDING_MODEL")
	setString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	setString(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
	setString(&cfg.EmbeddingAPIKey, "EMBEDDING_API_KEY")
	setString(&cfg.EmbeddingBaseURL, "EMBEDDING_BASE_URL")
	setString(&cfg.EmbeddingModel, "EMBEDDING_MODEL")

	setString(&cfg.VectorStore, "VECTOR_STORE")
	setString(&cfg.ElasticsearchHost, "ELASTICSEARCH_HOST")
	setInt(&cfg.ElasticsearchPort, "ELASTICSEARCH_PORT")
	setString(&cfg.ElasticsearchScheme, "ELASTICSEARCH_SCHEME")
	setString(&cfg.ElasticsearchUser, "ELASTICSEARCH_USER")
	setString(&cfg.ElasticsearchPassword, "ELASTICSEARCH_PASSWORD")
	setBool(&cfg.ElasticsearchVerifyCerts, "ELASTICSEARCH_VERIFY_CERTS")
	setInt(&cfg.ElasticsearchMaxRetries, "ELASTICSEARCH_MAX_RETRIES")
	setString(&cfg.VectorIndex, "VECTOR_INDEX")
	setString(&cfg.VectorNamespace, "VECTOR_NAMESPACE")
	setInt(&cfg.EmbeddingDims, "EMBEDDING_DIMS")

	setString(&cfg.OrderStore, "ORDER_STORE")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.GCPProjectID, "GCP_PROJECT_ID")
	setString(&cfg.GoogleApplicationCredentials, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.BigQueryLocation, "BIGQUERY_LOCATION")
	setString(&cfg.BigQueryDataset, "BIGQUERY_DATASET")
	setString(&cfg.BigQueryOrdersTable, "BIGQUERY_ORDERS_TABLE")

	setInt(&cfg.RetrievalCacheTTL, "RETRIEVAL_CACHE_TTL")
	setInt(&cfg.RetrievalCacheCapacity, "RETRIEVAL_CACHE_CAPACITY")
}

func setString(dst *string, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
