package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/internlens/internlens-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	router := gin.New()
	router.GET("/users/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRBACAllowsRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "ADMIN")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u2", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRBACForbidsRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleUser}, "ADMIN")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u2", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACSelfAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleUser}, "ADMIN", "SELF")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u2", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := rbacRouter(nil, "ADMIN")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
