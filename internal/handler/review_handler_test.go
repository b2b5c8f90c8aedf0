package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/internal/middleware"
	"github.com/internlens/internlens-api/internal/models"
	"github.com/internlens/internlens-api/internal/service"
)

func newReviewHandlerFixture() *ReviewHandler {
	votes := service.NewVoteService(nil, nil, validator.New(), zap.NewNop())
	return NewReviewHandler(nil, votes, nil)
}

func TestReviewHandlerSubmitUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReviewHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/reviews", nil)

	handler.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReviewHandlerUpdateUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReviewHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/reviews/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Update(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReviewHandlerVoteInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReviewHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPut, "/reviews/r1/vote", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})

	handler.Vote(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewHandlerReportUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReviewHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/reviews/r1/reports", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Report(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
