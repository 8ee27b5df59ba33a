package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cortexai/orderlens/internal/agent"
	"github.com/cortexai/orderlens/internal/cache"
	"github.com/cortexai/orderlens/internal/completion"
	"github.com/cortexai/orderlens/internal/config"
	"github.com/cortexai/orderlens/internal/models"
	"github.com/cortexai/orderlens/internal/security"
	"github.com/cortexai/orderlens/internal/service"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/rs/zerolog/log"
)

// OrderStore is everything the service needs from an order backend
type OrderStore interface {
	tools.OrderStore
	TestConnection(ctx context.Context) error
	ReplaceOrders(ctx context.Context, orders []models.Order) error
	Close() error
}

// VectorStore is everything the service needs from a vector backend
type VectorStore interface {
	tools.VectorStore
	TestConnection(ctx context.Context) error
	Upsert(ctx context.Context, namespace string, vectors []service.Vector) error
}

// Components holds the long-lived objects shared by the HTTP server and the CLI
type Components struct {
	Config       *config.Config
	LLM          completion.Service
	Orders       OrderStore
	Vectors      VectorStore
	Cache        *cache.TTL[string]
	Retriever    *tools.ContextRetriever
	Querier      *tools.OrderQuerier
	Orchestrator *agent.Orchestrator
}

// Build constructs every component from cfg. The LLM provider and both
// stores are chosen here once and never change afterwards.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	llm, err := completion.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("completion service: %w", err)
	}

	orders, err := newOrderStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("order store: %w", err)
	}

	vectors, err := newVectorStore(cfg)
	if err != nil {
		orders.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}

	resultCache := cache.New[string](cache.Options{Capacity: cfg.RetrievalCacheCapacity})
	retriever := tools.NewContextRetriever(llm, vectors, resultCache, tools.RetrieverConfig{
		Namespace: cfg.VectorNamespace,
		TopK:      tools.DefaultRetrievalTopK,
		CacheTTL:  time.Duration(cfg.RetrievalCacheTTL) * time.Second,
	})
	querier := tools.NewOrderQuerier(orders, time.Now)

	orchestrator := agent.NewOrchestrator(llm, &tools.Toolset{Retriever: retriever, Orders: querier}, agent.Options{
		Concurrent: cfg.ToolDispatchConcurrent,
		Timeout:    time.Duration(cfg.AgentTimeout) * time.Second,
		Audit:      security.NewAuditLogger(cfg.EnableAuditLogging),
	})

	log.Info().
		Str("llm_provider", cfg.LLMProvider).
		Str("order_store", cfg.OrderStore).
		Str("vector_store", cfg.VectorStore).
		Str("vector_namespace", cfg.VectorNamespace).
		Bool("concurrent_dispatch", cfg.ToolDispatchConcurrent).
		Bool("auth_enabled", cfg.EnableAuth).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Msg("service configuration")

	return &Components{
		Config:       cfg,
		LLM:          llm,
		Orders:       orders,
		Vectors:      vectors,
		Cache:        resultCache,
		Retriever:    retriever,
		Querier:      querier,
		Orchestrator: orchestrator,
	}, nil
}

// Close releases backend connections
func (c *Components) Close() error {
	if c.Orders == nil {
		return nil
	}
	return c.Orders.Close()
}

// Migrate applies schema migrations when the order store has any
func (c *Components) Migrate(ctx context.Context) error {
	m, ok := c.Orders.(interface {
		Migrate(ctx context.Context) error
	})
	if !ok {
		return errors.New("order store " + c.Config.OrderStore + " has no migrations")
	}
	return m.Migrate(ctx)
}

// EnsureVectorIndex creates the vector index when the vector store needs one
func (c *Components) EnsureVectorIndex(ctx context.Context) error {
	if es, ok := c.Vectors.(*service.ElasticsearchVectorStore); ok {
		return es.EnsureIndex(ctx)
	}
	return nil
}

func newOrderStore(ctx context.Context, cfg *config.Config) (OrderStore, error) {
	switch cfg.OrderStore {
	case config.OrderStorePostgres:
		s, err := service.NewPostgresOrderStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.OrderStoreBigQuery:
		s, err := service.NewBigQueryOrderStore(ctx, service.BigQueryConfig{
			ProjectID:       cfg.GCPProjectID,
			CredentialsFile: cfg.GoogleApplicationCredentials,
			Location:        cfg.BigQueryLocation,
			DatasetID:       cfg.BigQueryDataset,
			TableID:         cfg.BigQueryOrdersTable,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.OrderStoreMemory:
		log.Warn().Msg("using in-memory order store; data is lost on exit")
		return service.NewMemoryOrderStore(), nil
	}
	return nil, fmt.Errorf("unknown order store %q", cfg.OrderStore)
}

func newVectorStore(cfg *config.Config) (VectorStore, error) {
	switch cfg.VectorStore {
	case config.VectorStoreElasticsearch:
		s, err := service.NewElasticsearchVectorStore(service.ElasticsearchConfig{
			Scheme:      cfg.ElasticsearchScheme,
			Host:        cfg.ElasticsearchHost,
			Port:        cfg.ElasticsearchPort,
			User:        cfg.ElasticsearchUser,
			Password:    cfg.ElasticsearchPassword,
			VerifyCerts: cfg.ElasticsearchVerifyCerts,
			MaxRetries:  cfg.ElasticsearchMaxRetries,
			Index:       cfg.VectorIndex,
			Dims:        cfg.EmbeddingDims,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.VectorStoreMemory:
		log.Warn().Msg("using in-memory vector store; data is lost on exit")
		return service.NewMemoryVectorStore(), nil
	}
	return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
}
