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

// CompanyHandler exposes the employer catalogue.
type CompanyHandler struct {
	service *service.CompanyService
	reviews *service.ReviewService
}

// NewCompanyHandler creates a new company handler.
func NewCompanyHandler(svc *service.CompanyService, reviews *service.ReviewService) *CompanyHandler {
	return &CompanyHandler{service: svc, reviews: reviews}
}

// List godoc
// @Summary List companies
// @Description List companies with search, filtering and pagination
// @Tags Companies
// @Produce json
// @Param q query string false "Search term"
// @Param industry query string false "Industry filter"
// @Param location query string false "Location filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /companies [get]
func (h *CompanyHandler) List(c *gin.Context) {
	var filter models.CompanyFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "12")); err == nil {
		filter.PageSize = size
	}

	filter.Query = c.Query("q")
	filter.Industry = c.Query("industry")
	filter.Location = c.Query("location")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list.Companies, &list.Pagination)
}

// GetBySlug godoc
// @Summary Get company
// @Description Get company profile with aggregated stats and a preview of its latest approved reviews
// @Tags Companies
// @Produce json
// @Param slug path string true "Company slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /companies/{slug} [get]
func (h *CompanyHandler) GetBySlug(c *gin.Context) {
	company, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Anonymous viewer, so the listing only ever surfaces APPROVED rows.
	preview, err := h.reviews.List(c.Request.Context(), models.ReviewFilter{
		CompanyID: company.ID,
		PageSize:  5,
		SortBy:    "created_at",
		SortOrder: "desc",
	}, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"company": company, "recent_reviews": preview.Reviews}, nil)
}

// Create godoc
// @Summary Create company
// @Description Add a company to the catalogue
// @Tags Companies
// @Accept json
// @Produce json
// @Param payload body service.CreateCompanyRequest true "Company payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /companies [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid company payload"))
		return
	}

	company, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, company)
}

// Update godoc
// @Summary Update company
// @Description Edit a company profile
// @Tags Companies
// @Accept json
// @Produce json
// @Param slug path string true "Company slug"
// @Param payload body service.UpdateCompanyRequest true "Company payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /companies/{slug} [patch]
func (h *CompanyHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid company payload"))
		return
	}

	company, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	company, err = h.service.Update(c.Request.Context(), company.ID, req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, company, nil)
}
