package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultAgentTimeout = 120 // seconds

	DefaultMaxPromptLength = 2000

	DefaultCORSMaxAge = 300

	// LLM providers
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIBaseURL          = "https://api.openai.com/v1"
	DefaultOpenAIModel            = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel   = "text-embedding-3-small"
	DefaultDeepSeekBaseURL        = "https://api.deepseek.com/v1"
	DefaultDeepSeekModel          = "deepseek-chat"
	DefaultDeepSeekEmbeddingModel = "deepseek-embedding"
	DefaultAnthropicModel         = "claude-sonnet-4-6"
	DefaultAnthropicMaxTokens     = 1024

	// Vector store
	VectorStoreElasticsearch = "elasticsearch"
	VectorStoreMemory        = "memory"

	DefaultVectorStore             = VectorStoreElasticsearch
	DefaultElasticsearchPort       = 9200
	DefaultElasticsearchScheme     = "http"
	DefaultElasticsearchMaxRetries = 0
	DefaultVectorIndex             = "orderlens-knowledge"
	DefaultVectorNamespace         = "default"
	DefaultEmbeddingDims           = 1536

	// Order store
	OrderStorePostgres = "postgres"
	OrderStoreBigQuery = "bigquery"
	OrderStoreMemory   = "memory"

	DefaultOrderStore          = OrderStorePostgres
	DefaultBigQueryLocation    = "US"
	DefaultBigQueryOrdersTable = "orders"

	// Retrieval cache
	DefaultRetrievalCacheTTL      = 600 // seconds
	DefaultRetrievalCacheCapacity = 0   // unbounded
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}
