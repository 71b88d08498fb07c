package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"servo-service/internal/config"
	"servo-service/internal/utils"
)

func newEngine(middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, utils.GetRequestID(c))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	r.GET("/panic-late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("boom")
	})
	return r
}

func get(r *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDGenerated(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w := get(r, "/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w := get(r, "/ping", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := newEngine(RecoveryMiddleware(zap.NewNop()))

	w := get(r, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestRecoveryLogsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := newEngine(RecoveryMiddleware(zap.New(core)), RequestIDMiddleware())

	w := get(r, "/panic", map[string]string{RequestIDHeader: "req-7"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "req-7")

	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "/panic", fields["route"])
	assert.Equal(t, false, fields["response_started"])
}

func TestRecoveryAfterResponseStarted(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := newEngine(RecoveryMiddleware(zap.New(core)))

	w := get(r, "/panic-late", map[string]string{RequestIDHeader: "req-8"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-8", entries[0].ContextMap()["request_id"])
	assert.Equal(t, true, entries[0].ContextMap()["response_started"])
}

func TestRateLimiterPerClient(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(2 * limiterIdleTTL)
	limiter.Allow("10.0.0.2")

	assert.Len(t, limiter.clients, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := &config.SecurityConfig{RateLimitRequests: 1, RateLimitBurst: 1}
	logger := utils.NewServiceLogger(zap.NewNop(), "test")
	r := newEngine(RateLimitMiddleware(cfg, logger))

	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	w := get(r, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestCORSMiddleware(t *testing.T) {
	r := newEngine(CORSMiddleware(&config.SecurityConfig{AllowedOrigins: []string{"http://panel.local"}}))

	w := get(r, "/ping", map[string]string{"Origin": "http://panel.local"})
	assert.Equal(t, "http://panel.local", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/ping", map[string]string{"Origin": "http://evil.local"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
