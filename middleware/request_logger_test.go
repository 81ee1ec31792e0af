package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(logger *zap.Logger, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/thing", handler)
	return r
}

func TestRequestID_KeepsValidAndReplacesInvalid(t *testing.T) {
	r := newLoggedRouter(zap.NewNop(), func(c *gin.Context) { c.Status(http.StatusOK) })

	const rid = "0b8f4c1e-3a6d-4f5e-9c2b-7d1a2e3f4b5c"
	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	req.Header.Set(RequestIDHeader, rid)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, rid, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/thing", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRequestLogger_ScopedLoggerAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newLoggedRouter(zap.New(core), func(c *gin.Context) {
		LoggerFrom(c, zap.NewNop()).Info("handled")
		c.Status(http.StatusBadGateway)
	})

	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	req.Header.Set(RequestIDHeader, "0b8f4c1e-3a6d-4f5e-9c2b-7d1a2e3f4b5c")
	r.ServeHTTP(httptest.NewRecorder(), req)

	handled := logs.FilterMessage("handled").All()
	if assert.Len(t, handled, 1) {
		assert.Equal(t, "0b8f4c1e-3a6d-4f5e-9c2b-7d1a2e3f4b5c", handled[0].ContextMap()["request_id"])
	}
	access := logs.FilterMessage("http_request").All()
	if assert.Len(t, access, 1) {
		assert.Equal(t, zapcore.ErrorLevel, access[0].Level)
		assert.Equal(t, int64(http.StatusBadGateway), access[0].ContextMap()["status"])
	}
}

func TestRequestLogger_HealthIsQuiet(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newLoggedRouter(zap.New(core), func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, 0, logs.Len())
}

func TestLoggerFrom_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	fallback := zap.NewNop()
	assert.Same(t, fallback, LoggerFrom(c, fallback))
}
