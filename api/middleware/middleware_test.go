package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"techintel-service/api/controllers"
	"techintel-service/service/rate_limiter"
)

// MockChecker 模拟限流检查
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) CheckRateLimit(ctx context.Context, rules []rate_limiter.RateLimitRule) (*rate_limiter.RateLimitResult, error) {
	args := m.Called(ctx, rules)
	result, _ := args.Get(0).(*rate_limiter.RateLimitResult)
	return result, args.Error(1)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_Allowed(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckRateLimit", mock.Anything, mock.MatchedBy(func(rules []rate_limiter.RateLimitRule) bool {
		return len(rules) == 2 && rules[1].TargetID == "dashboard"
	})).Return(&rate_limiter.RateLimitResult{Allowed: true, Limit: 10, Remaining: 9, ResetAt: 100}, nil)

	h := NewRateLimitMiddleware(checker, 60, 100, 10).Handler(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/companies/query", nil)
	req.Header.Set(ClientHeader, "dashboard")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	checker.AssertExpectations(t)
}

func TestRateLimit_Rejected(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckRateLimit", mock.Anything, mock.Anything).Return(&rate_limiter.RateLimitResult{
		Allowed: false, Limit: 10, RateLimitType: rate_limiter.LimitClient, Message: "超过客户端限流限制",
	}, nil)

	h := NewRateLimitMiddleware(checker, 60, 0, 10).Handler(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/companies/query", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body controllers.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.Equal(t, "超过客户端限流限制", body.Msg)
	assert.Nil(t, body.Data)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckRateLimit", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	h := NewRateLimitMiddleware(checker, 60, 100, 10).Handler(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/companies/facets", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Whitelist(t *testing.T) {
	checker := new(MockChecker)
	h := NewRateLimitMiddleware(checker, 60, 1, 1).Handler(okHandler())

	for _, path := range []string{"/health", "/ready", "/sse/dashboard", "/metrics", "/swagger/index.html"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	checker.AssertNotCalled(t, "CheckRateLimit", mock.Anything, mock.Anything)
}

func TestRateLimit_WhitelistUnderBaseContext(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckRateLimit", mock.Anything, mock.Anything).Return(&rate_limiter.RateLimitResult{
		Allowed: false, Limit: 1, RateLimitType: rate_limiter.LimitGlobal, Message: "超过全局限流限制",
	}, nil)

	mux := chi.NewRouter()
	mux.Route("/techintel", func(r chi.Router) {
		r.Use(NewRateLimitMiddleware(checker, 60, 1, 1).Handler)
		r.Get("/health", okHandler().ServeHTTP)
		r.Get("/sse/{client_name}", okHandler().ServeHTTP)
		r.Get("/companies/{id}", okHandler().ServeHTTP)
	})

	cases := map[string]int{
		"/techintel/health":             http.StatusOK,
		"/techintel/sse/dashboard":      http.StatusOK,
		"/techintel/companies/health":   http.StatusTooManyRequests,
		"/techintel/companies/ready-co": http.StatusTooManyRequests,
	}
	for path, code := range cases {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, w.Code, path)
	}
	checker.AssertNumberOfCalls(t, "CheckRateLimit", 2)
}

func TestRateLimit_LookalikePathsAreLimited(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckRateLimit", mock.Anything, mock.Anything).Return(&rate_limiter.RateLimitResult{
		Allowed: false, Limit: 1, RateLimitType: rate_limiter.LimitGlobal, Message: "超过全局限流限制",
	}, nil)
	h := NewRateLimitMiddleware(checker, 60, 1, 0).Handler(okHandler())

	paths := []string{"/companies/healthify", "/companies/ready-co", "/companies/metrics", "/companies/sse-labs"}
	for _, path := range paths {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code, path)
	}
	checker.AssertNumberOfCalls(t, "CheckRateLimit", len(paths))
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientID(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientID(req))

	req.Header.Set(ClientHeader, "dashboard")
	assert.Equal(t, "dashboard", clientID(req))
}

func TestMetrics_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/companies/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/companies/x", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
