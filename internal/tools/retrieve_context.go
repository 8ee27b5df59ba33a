package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cortexai/orderlens/internal/cache"
	"github.com/cortexai/orderlens/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRetrievalTopK     = 5
	DefaultRetrievalCacheTTL = 600 * time.Second

	// NoContextFound is returned when the vector store yields no usable snippet
	NoContextFound = "No relevant context found."

	snippetSeparator = "\n---\n"
	// sharedFetchTimeout bounds a deduplicated fetch, which ignores caller cancellation
	sharedFetchTimeout = 60 * time.Second
	cacheKeyPrefix   = "rag:"
)

// Embedder turns texts into embedding vectors, one per text
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the nearest-neighbour search side of the vector store
type VectorStore interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]service.VectorMatch, error)
}

// RetrieverConfig tunes a ContextRetriever. Zero values take the defaults.
type RetrieverConfig struct {
	Namespace string
	TopK      int
	CacheTTL  time.Duration
}

// ContextRetriever is the retrieval adapter behind the retrieve_context tool
type ContextRetriever struct {
	embedder  Embedder
	store     VectorStore
	cache     *cache.TTL[string]
	namespace string
	topK      int
	ttl       time.Duration
	sf        singleflight.Group // one backend round trip per key at a time
}

// NewContextRetriever wires an embedder, a vector store and a result cache
func NewContextRetriever(embedder Embedder, store VectorStore, c *cache.TTL[string], cfg RetrieverConfig) *ContextRetriever {
	if c == nil {
		c = cache.New[string](cache.Options{})
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrievalTopK
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultRetrievalCacheTTL
	}
	return &ContextRetriever{
		embedder:  embedder,
		store:     store,
		cache:     c,
		namespace: cfg.Namespace,
		topK:      cfg.TopK,
		ttl:       cfg.CacheTTL,
	}
}

// RetrieveContext returns the ranked snippets for query joined into one
// block, or NoContextFound.
func (r *ContextRetriever) RetrieveContext(ctx context.Context, query string) (string, error) {
	key := cacheKeyPrefix + query
	if cached, ok := r.cache.Get(key); ok {
		zerolog.Ctx(ctx).Debug().Str("key", key).Msg("retrieval cache hit")
		return cached, nil
	}

	// The shared fetch outlives any single caller's cancellation; each caller
	// still stops waiting when its own ctx ends.
	ch := r.sf.DoChan(key, func() (interface{}, error) {
		if cached, ok := r.cache.Get(key); ok {
			return cached, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		joined, err := r.fetch(fetchCtx, query)
		if err != nil {
			return "", err
		}
		if joined != "" {
			r.cache.Set(key, joined, r.ttl)
		}
		return joined, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if res.Err != nil {
		return "", res.Err
	}

	joined := res.Val.(string)
	if joined == "" {
		return NoContextFound, nil
	}
	return joined, nil
}

func (r *ContextRetriever) fetch(ctx context.Context, query string) (string, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return "", errors.New("embed query: no vector returned")
	}

	matches, err := r.store.Query(ctx, r.namespace, vectors[0], r.topK, true)
	if err != nil {
		return "", fmt.Errorf("vector query: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	snippets := make([]string, 0, len(matches))
	for _, m := range matches {
		if text, _ := m.Metadata["text"].(string); text != "" {
			snippets = append(snippets, text)
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("matches", len(matches)).
		Int("snippets", len(snippets)).
		Msg("retrieved snippets")
	return strings.Join(snippets, snippetSeparator), nil
}
