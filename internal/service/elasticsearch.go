package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchConfig holds connection and index settings for the vector store
type ElasticsearchConfig struct {
	Scheme      string
	Host        string
	Port        int
	User        string
	Password    string
	VerifyCerts bool
	// MaxRetries of zero disables transport retries entirely.
	MaxRetries int
	Index       string
	Dims        int
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// ElasticsearchVectorStore keeps embeddings in a dense_vector field and
// answers nearest-neighbour queries with the kNN search API.
// Namespaces are a keyword field filtered on every query.
type ElasticsearchVectorStore struct {
	client *elasticsearch.Client
	index  string
	dims   int
}

// NewElasticsearchVectorStore creates an ES client using go-elasticsearch/v8
func NewElasticsearchVectorStore(cfg ElasticsearchConfig) (*ElasticsearchVectorStore, error) {
	addr := fmt.Sprintf("%s://%s:%d", cfg.Scheme, cfg.Host, cfg.Port)

	esCfg := elasticsearch.Config{
		Addresses:    []string{addr},
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.MaxRetries <= 0,
		Transport:    cfg.Transport,
	}
	if cfg.User != "" {
		esCfg.Username = cfg.User
		esCfg.Password = cfg.Password
	}
	if !cfg.VerifyCerts && esCfg.Transport == nil {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - user explicitly disabled cert verification
			},
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	return &ElasticsearchVectorStore{
		client: client,
		index:  cfg.Index,
		dims:   cfg.Dims,
	}, nil
}

// TestConnection pings the cluster
func (s *ElasticsearchVectorStore) TestConnection(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the vector index with its mapping when it does not exist
func (s *ElasticsearchVectorStore) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"namespace": map[string]interface{}{"type": "keyword"},
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       s.dims,
					"index":      true,
					"similarity": "cosine",
				},
				"metadata": map[string]interface{}{"type": "object", "enabled": false},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	_, err = decodeBody(res.Body, res.Status())
	return err
}

// Query returns the topK nearest vectors in namespace
func (s *ElasticsearchVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]VectorMatch, error) {
	numCandidates := topK * 10
	if numCandidates < 50 {
		numCandidates = 50
	}

	body := map[string]interface{}{
		"size": topK,
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": numCandidates,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"namespace": namespace},
			},
		},
	}
	if includeMetadata {
		body["_source"] = []string{"metadata"}
	} else {
		body["_source"] = false
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(bodyBytes)),
	}
	res, err := s.client.Search(opts...)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := decodeBody(res.Body, res.Status())
	if err != nil {
		return nil, err
	}
	return parseKNNHits(namespace, raw), nil
}

// Upsert indexes vectors into namespace, replacing documents with the same id
func (s *ElasticsearchVectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, v := range vectors {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_id": documentID(namespace, v.ID)},
		}
		doc := map[string]interface{}{
			"namespace": namespace,
			"embedding": v.Values,
			"metadata":  v.Metadata,
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk upsert: %w", err)
	}
	defer res.Body.Close()

	raw, err := decodeBody(res.Body, res.Status())
	if err != nil {
		return err
	}
	if failed, _ := raw["errors"].(bool); failed {
		return fmt.Errorf("bulk upsert: one or more documents failed")
	}
	return nil
}

func documentID(namespace, id string) string {
	return namespace + ":" + id
}

func decodeBody(r io.Reader, status string) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		if errObj, ok := result["error"]; ok {
			return nil, fmt.Errorf("elasticsearch error [%s]: %v", status, errObj)
		}
		return nil, fmt.Errorf("elasticsearch error: %s", status)
	}
	return result, nil
}

func parseKNNHits(namespace string, raw map[string]interface{}) []VectorMatch {
	hitsObj, ok := raw["hits"].(map[string]interface{})
	if !ok {
		return nil
	}
	hits, ok := hitsObj["hits"].([]interface{})
	if !ok {
		return nil
	}

	matches := make([]VectorMatch, 0, len(hits))
	for _, h := range hits {
		hm, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		m := VectorMatch{}
		if id, ok := hm["_id"].(string); ok {
			m.ID = strings.TrimPrefix(id, namespace+":")
		}
		if score, ok := hm["_score"].(float64); ok {
			m.Score = score
		}
		if src, ok := hm["_source"].(map[string]interface{}); ok {
			if meta, ok := src["metadata"].(map[string]interface{}); ok {
				m.Metadata = meta
			}
		}
		matches = append(matches, m)
	}
	return matches
}
