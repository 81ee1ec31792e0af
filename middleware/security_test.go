package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRateLimit_PerShopper(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := middleware.NewRateLimiter(rate.Every(time.Hour), 1, time.Minute)
	r := gin.New()
	r.Use(middleware.Authenticate(middleware.NewTokenParser(testSecret)), middleware.RateLimit(rl))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(guestID string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(middleware.GuestIDHeader, guestID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	a := "6f1c2a52-6d3e-4c1e-9a53-2f3b0a7d8e11"
	b := "0b7f5c0e-1d2a-4a8e-b1c3-9e8d7c6b5a40"
	assert.Equal(t, http.StatusOK, send(a))
	assert.Equal(t, http.StatusTooManyRequests, send(a))
	assert.Equal(t, http.StatusOK, send(b))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := middleware.NewRateLimiter(rate.Limit(1), 1, time.Minute)
	rl.GetLimiter("a")
	rl.GetLimiter("b")
	assert.Equal(t, 2, rl.Len())

	rl.Cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, rl.Len())
}
