package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/internlens/internlens-api/internal/models"
	"github.com/internlens/internlens-api/internal/service"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
	"github.com/internlens/internlens-api/pkg/response"
)

// CompanyRequestHandler exposes the company addition queue.
type CompanyRequestHandler struct {
	service *service.CompanyRequestService
}

// NewCompanyRequestHandler creates a new handler.
func NewCompanyRequestHandler(svc *service.CompanyRequestService) *CompanyRequestHandler {
	return &CompanyRequestHandler{service: svc}
}

// Submit godoc
// @Summary Request company addition
// @Description Ask for a company to be added; works for anonymous visitors too
// @Tags Company Requests
// @Accept json
// @Produce json
// @Param payload body service.SubmitCompanyRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /company-requests [post]
func (h *CompanyRequestHandler) Submit(c *gin.Context) {
	var req service.SubmitCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	var userID *string
	if claims := claimsFromContext(c); claims != nil {
		userID = &claims.UserID
	}

	request, err := h.service.Submit(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// List godoc
// @Summary List company requests
// @Description List company addition requests, oldest first
// @Tags Company Requests
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/company-requests [get]
func (h *CompanyRequestHandler) List(c *gin.Context) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = p
	}
	if s, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		pageSize = s
	}

	var status *models.CompanyRequestStatus
	if raw := c.Query("status"); raw != "" {
		s := models.CompanyRequestStatus(raw)
		status = &s
	}

	list, err := h.service.List(c.Request.Context(), status, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list.Requests, &list.Pagination)
}

// Decide godoc
// @Summary Decide company request
// @Description Approve or reject a company addition request
// @Tags Company Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body object true "Decision payload: status APPROVED or REJECTED, rejection_reason, optional company overrides"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /company-requests/{id} [patch]
func (h *CompanyRequestHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Status          models.CompanyRequestStatus   `json:"status" binding:"required"`
		RejectionReason *string                       `json:"rejection_reason,omitempty"`
		Company         *service.CreateCompanyRequest `json:"company,omitempty"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	req := service.DecideCompanyRequest{
		Reason:  payload.RejectionReason,
		Company: payload.Company,
	}
	switch payload.Status {
	case models.CompanyRequestApproved:
		req.Approve = true
	case models.CompanyRequestRejected:
		req.Approve = false
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED"))
		return
	}

	request, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}
