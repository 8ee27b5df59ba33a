package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cortexai/orderlens/internal/agent"
	"github.com/cortexai/orderlens/internal/config"
	"github.com/cortexai/orderlens/internal/handler"
	"github.com/cortexai/orderlens/internal/server"
	"github.com/cortexai/orderlens/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAnswerer struct{}

func (staticAnswerer) Answer(ctx context.Context, question string) (*agent.Outcome, error) {
	return &agent.Outcome{Answer: "echo: " + question}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		APIPrefix:          config.DefaultAPIPrefix,
		APIKeyHeader:       "X-API-Key",
		RateLimitPerMinute: 100,
		CORSOrigins:        config.DefaultCORSOrigins,
	}
}

func testRouter(cfg *config.Config) http.Handler {
	return server.Routes(cfg, staticAnswerer{}, map[string]handler.HealthChecker{
		"order_store":  service.NewMemoryOrderStore(),
		"vector_store": service.NewMemoryVectorStore(),
	})
}

func TestRoutes_Ask(t *testing.T) {
	srv := httptest.NewServer(testRouter(testConfig()))
	defer srv.Close()

	for _, path := range []string{"/api/v1/ask", "/ask"} {
		res, err := http.Post(srv.URL+path, "application/json", strings.NewReader(`{"query":"hello"}`))
		require.NoError(t, err)
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, res.StatusCode, path)
		assert.JSONEq(t, `{"answer":"echo: hello","tools":[]}`, string(body))
		assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
		assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
	}
}

func TestRoutes_AskMissingQuery(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(testConfig()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `Missing \"query\"`)
}

func TestRoutes_AskRequiresPost(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(testConfig()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ask", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRoutes_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.EnableAuth = true
	cfg.APIKeys = []string{"k1"}
	router := testRouter(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"query":"q"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("X-API-Key", "k1")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRoutes_Health(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(testConfig()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"order_store":"ok"`)
	assert.Contains(t, rr.Body.String(), `"vector_store":"ok"`)
}

func TestBuild_MemoryStores(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:     config.ProviderOpenAI,
		OpenAIAPIKey:    "k",
		OpenAIBaseURL:   config.DefaultOpenAIBaseURL,
		OpenAIModel:     config.DefaultOpenAIModel,
		OrderStore:      config.OrderStoreMemory,
		VectorStore:     config.VectorStoreMemory,
		VectorNamespace: "default",
	}
	comps, err := server.Build(context.Background(), cfg)
	require.NoError(t, err)
	defer comps.Close()

	assert.NotNil(t, comps.Orchestrator)
	assert.NoError(t, comps.EnsureVectorIndex(context.Background()))
	assert.Error(t, comps.Migrate(context.Background()))
}
