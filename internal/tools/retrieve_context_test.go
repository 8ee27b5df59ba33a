package tools_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cortexai/orderlens/internal/cache"
	"github.com/cortexai/orderlens/internal/service"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubVectorStore struct {
	matches   []service.VectorMatch
	err       error
	namespace string
	topK      int
	withMeta  bool
}

func (s *stubVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]service.VectorMatch, error) {
	s.namespace, s.topK, s.withMeta = namespace, topK, includeMetadata
	return s.matches, s.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func meta(text string) map[string]interface{} {
	return map[string]interface{}{"text": text}
}

func TestRetrieveContext_JoinsByScore(t *testing.T) {
	store := &stubVectorStore{matches: []service.VectorMatch{
		{ID: "p2", Score: 0.4, Metadata: meta("shipping")},
		{ID: "p1", Score: 0.9, Metadata: meta("refunds")},
		{ID: "p3", Score: 0.7, Metadata: meta("")},
		{ID: "p4", Score: 0.6},
	}}
	r := tools.NewContextRetriever(&countingEmbedder{}, store, nil, tools.RetrieverConfig{Namespace: "kb"})

	got, err := r.RetrieveContext(context.Background(), "refund?")
	require.NoError(t, err)
	assert.Equal(t, "refunds\n---\nshipping", got)
	assert.Equal(t, "kb", store.namespace)
	assert.Equal(t, tools.DefaultRetrievalTopK, store.topK)
	assert.True(t, store.withMeta)
}

func TestRetrieveContext_CachesForTTL(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := cache.New[string](cache.Options{Now: clk.Now})
	emb := &countingEmbedder{}
	store := &stubVectorStore{matches: []service.VectorMatch{{ID: "p1", Score: 1, Metadata: meta("refunds")}}}
	r := tools.NewContextRetriever(emb, store, c, tools.RetrieverConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := r.RetrieveContext(ctx, "refund?")
		require.NoError(t, err)
		assert.Equal(t, "refunds", got)
	}
	assert.EqualValues(t, 1, emb.calls.Load())

	_, ok := c.Get("rag:refund?")
	assert.True(t, ok)

	clk.Advance(599 * time.Second)
	_, err := r.RetrieveContext(ctx, "refund?")
	require.NoError(t, err)
	assert.EqualValues(t, 1, emb.calls.Load())

	clk.Advance(2 * time.Second)
	_, err = r.RetrieveContext(ctx, "refund?")
	require.NoError(t, err)
	assert.EqualValues(t, 2, emb.calls.Load())
}

func TestRetrieveContext_EmptyReturnsSentinelAndIsNotCached(t *testing.T) {
	emb := &countingEmbedder{}
	c := cache.New[string](cache.Options{})
	r := tools.NewContextRetriever(emb, &stubVectorStore{}, c, tools.RetrieverConfig{})

	for i := 0; i < 2; i++ {
		got, err := r.RetrieveContext(context.Background(), "unknown topic")
		require.NoError(t, err)
		assert.Equal(t, tools.NoContextFound, got)
	}
	assert.EqualValues(t, 2, emb.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestRetrieveContext_ErrorsAreNotCached(t *testing.T) {
	emb := &countingEmbedder{err: errors.New("rate limited")}
	c := cache.New[string](cache.Options{})
	r := tools.NewContextRetriever(emb, &stubVectorStore{}, c, tools.RetrieverConfig{})

	_, err := r.RetrieveContext(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 0, c.Len())

	store := &stubVectorStore{err: errors.New("index missing")}
	r = tools.NewContextRetriever(&countingEmbedder{}, store, c, tools.RetrieverConfig{})
	_, err = r.RetrieveContext(context.Background(), "q")
	assert.Error(t, err)
}

func TestRetrieveContext_ConcurrentMissesShareOneFetch(t *testing.T) {
	emb := &countingEmbedder{delay: 50 * time.Millisecond}
	store := &stubVectorStore{matches: []service.VectorMatch{{ID: "p1", Score: 1, Metadata: meta("refunds")}}}
	r := tools.NewContextRetriever(emb, store, nil, tools.RetrieverConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.RetrieveContext(context.Background(), "refund?")
			assert.NoError(t, err)
			assert.Equal(t, "refunds", got)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, emb.calls.Load())
}

// gatedEmbedder blocks until release is closed or its ctx ends
type gatedEmbedder struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (e *gatedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.calls.Add(1) == 1 {
		close(e.started)
	}
	select {
	case <-e.release:
		return [][]float32{{1, 0}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRetrieveContext_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	emb := &gatedEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	store := &stubVectorStore{matches: []service.VectorMatch{{ID: "p1", Score: 1, Metadata: meta("refunds")}}}
	r := tools.NewContextRetriever(emb, store, nil, tools.RetrieverConfig{})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.RetrieveContext(firstCtx, "refund?")
		firstErr <- err
	}()
	<-emb.started

	type outcome struct {
		text string
		err  error
	}
	second := make(chan outcome, 1)
	go func() {
		text, err := r.RetrieveContext(context.Background(), "refund?")
		second <- outcome{text, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(emb.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "refunds", got.text)
	assert.EqualValues(t, 1, emb.calls.Load())

	cached, err := r.RetrieveContext(context.Background(), "refund?")
	require.NoError(t, err)
	assert.Equal(t, "refunds", cached)
	assert.EqualValues(t, 1, emb.calls.Load())
}

func TestRetrieveContext_WithMemoryVectorStore(t *testing.T) {
	store := service.NewMemoryVectorStore()
	require.NoError(t, store.Upsert(context.Background(), "default", []service.Vector{
		{ID: "policy-1", Values: []float32{1, 0}, Metadata: meta("Refunds are available within 30 days.")},
		{ID: "policy-2", Values: []float32{0, 1}, Metadata: meta("Shipping takes 3-5 business days.")},
	}))
	r := tools.NewContextRetriever(&countingEmbedder{}, store, nil, tools.RetrieverConfig{})

	got, err := r.RetrieveContext(context.Background(), "refunds")
	require.NoError(t, err)
	assert.Equal(t, "Refunds are available within 30 days.\n---\nShipping takes 3-5 business days.", got)
}
