package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/service"
	"github.com/internlens/internlens-api/pkg/config"
)

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/reviews", RateLimit(nil, nil, "reviews"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reviews", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := service.NewRateLimitService(nil, zap.NewNop(), config.RateLimitConfig{
		Enabled: true,
		Reviews: config.RateLimitRule{Limit: 1, Window: time.Minute},
	})

	router := gin.New()
	router.POST("/reviews", RateLimit(limiter, nil, "reviews"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reviews", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
}
