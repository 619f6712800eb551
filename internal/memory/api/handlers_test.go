package api

import (
	"Mnemo_1.0/internal/config"
	"Mnemo_1.0/internal/models"
	"Mnemo_1.0/pkg/logger"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// fakeEngine 是一个可脚本化的 Engine 实现。
type fakeEngine struct {
	addResult    *models.ReconciliationResult
	addErr       error
	searchResult *models.SearchResult
	searchErr    error
	lastTurn     models.ConversationTurn
}

func (f *fakeEngine) AddMemory(_ context.Context, turn models.ConversationTurn) (*models.ReconciliationResult, error) {
	f.lastTurn = turn
	return f.addResult, f.addErr
}

func (f *fakeEngine) SearchMemory(_ context.Context, _, _ string, _ int) (*models.SearchResult, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeEngine) GetAllMemory(_ context.Context, _ string) (*models.SearchResult, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeEngine) History(_ context.Context, _ string, _ int64) ([]*models.MemoryEvent, error) {
	return nil, nil
}

func newTestRouter(engine Engine, mwCfg *config.MiddlewareConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(NewHandler(engine, logger.New("test", "", "")), mwCfg)
}

func TestAddMemoryEndpoint(t *testing.T) {
	engine := &fakeEngine{addResult: &models.ReconciliationResult{Added: []string{"f1"}}}
	router := newTestRouter(engine, nil)

	body := `{"user_id": "u1", "text": "I like coffee"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memories", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if engine.lastTurn.User != "u1" || engine.lastTurn.Role != models.SpeakerUser {
		t.Errorf("unexpected turn passed to the engine: %+v", engine.lastTurn)
	}

	var resp struct {
		Result models.ReconciliationResult `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Result.Added) != 1 || resp.Result.Added[0] != "f1" {
		t.Errorf("unexpected result payload: %+v", resp.Result)
	}
}

func TestAddMemoryRejectsMissingFields(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memories", strings.NewReader(`{"text": "no owner"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAddMemoryMapsOutageTo503(t *testing.T) {
	engine := &fakeEngine{addErr: models.ErrExtractionUnavailable}
	router := newTestRouter(engine, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memories", strings.NewReader(`{"user_id": "u1", "text": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestSearchMemoryEndpoint(t *testing.T) {
	engine := &fakeEngine{searchResult: &models.SearchResult{
		Facts:   []*models.Fact{{ID: "f1", UserID: "u1", Content: "likes coffee"}},
		Triples: []*models.Triple{{UserID: "u1", Subject: "u1", Predicate: "likes", Object: "coffee"}},
	}}
	router := newTestRouter(engine, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/memories/search?user_id=u1&q=coffee", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result models.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Facts) != 1 || len(result.Triples) != 1 {
		t.Errorf("unexpected search payload: %+v", result)
	}
}

func TestSearchMemoryRequiresQuery(t *testing.T) {
	router := newTestRouter(&fakeEngine{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/memories/search?user_id=u1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mwCfg := &config.MiddlewareConfig{
		RateLimiter: config.RateLimiterConfig{Enabled: true, Rate: 0.001, Capacity: 1},
	}
	engine := &fakeEngine{searchResult: &models.SearchResult{}}
	router := newTestRouter(engine, mwCfg)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/memories?user_id=u1", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request must pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/memories?user_id=u1", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after the bucket drained, got %d", second.Code)
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	mwCfg := &config.MiddlewareConfig{
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled: true, FailureThreshold: 2, SuccessThreshold: 1, Timeout: "1m",
		},
	}
	engine := &fakeEngine{searchErr: models.ErrStoreUnavailable}
	router := newTestRouter(engine, mwCfg)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/memories?user_id=u1", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("request %d: expected 503 from the engine, got %d", i, w.Code)
		}
	}

	// The breaker is now open: the engine must not be reached anymore.
	engine.searchErr = nil
	engine.searchResult = &models.SearchResult{}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/memories?user_id=u1", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected the open breaker to reject the request, got %d", w.Code)
	}
}
