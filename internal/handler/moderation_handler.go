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

// ModerationHandler exposes the admin moderation surface: the review
// queue, moderation transitions and the report queue.
type ModerationHandler struct {
	reviews *service.ReviewService
	reports *service.ReportService
	metrics *service.MetricsService
}

// NewModerationHandler creates a new moderation handler.
func NewModerationHandler(reviews *service.ReviewService, reports *service.ReportService, metrics *service.MetricsService) *ModerationHandler {
	return &ModerationHandler{reviews: reviews, reports: reports, metrics: metrics}
}

func (h *ModerationHandler) recordTransition(status models.ReviewStatus) {
	if h.metrics != nil {
		h.metrics.RecordModeration(status)
	}
}

// Queue godoc
// @Summary Moderation queue
// @Description List reviews awaiting moderation, oldest first
// @Tags Moderation
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/reviews [get]
func (h *ModerationHandler) Queue(c *gin.Context) {
	var filter models.ReviewFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	status := models.ReviewStatus(c.DefaultQuery("status", string(models.ReviewStatusPending)))
	filter.Status = &status
	filter.SortBy = "created_at"
	filter.SortOrder = "asc"

	list, err := h.reviews.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list.Reviews, &list.Pagination)
}

// Approve godoc
// @Summary Approve review
// @Description Publish a pending review
// @Tags Moderation
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/reviews/{id}/approve [post]
func (h *ModerationHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	review, err := h.reviews.Approve(c.Request.Context(), c.Param("id"), claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordTransition(review.Status)
	response.JSON(c, http.StatusOK, review, nil)
}

// Reject godoc
// @Summary Reject review
// @Description Reject a review with a mandatory reason
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body service.RejectReviewRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/reviews/{id}/reject [post]
func (h *ModerationHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RejectReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason required"))
		return
	}

	review, err := h.reviews.Reject(c.Request.Context(), c.Param("id"), req, claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordTransition(review.Status)
	response.JSON(c, http.StatusOK, review, nil)
}

// FlagNeedsEdit godoc
// @Summary Flag review for edits
// @Description Send a review back to its author for revision
// @Tags Moderation
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Router /admin/reviews/{id}/needs-edit [post]
func (h *ModerationHandler) FlagNeedsEdit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	review, err := h.reviews.FlagNeedsEdit(c.Request.Context(), c.Param("id"), claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordTransition(review.Status)
	response.JSON(c, http.StatusOK, review, nil)
}

// Remove godoc
// @Summary Remove review
// @Description Take down a published review
// @Tags Moderation
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/reviews/{id}/remove [post]
func (h *ModerationHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	review, err := h.reviews.Remove(c.Request.Context(), c.Param("id"), claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordTransition(review.Status)
	response.JSON(c, http.StatusOK, review, nil)
}

// Delete godoc
// @Summary Delete review
// @Description Permanently delete a review and its votes and reports
// @Tags Moderation
// @Produce json
// @Param id path string true "Review ID"
// @Success 204 {object} response.Envelope
// @Router /admin/reviews/{id} [delete]
func (h *ModerationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.reviews.HardDelete(c.Request.Context(), c.Param("id"), claims, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Reports godoc
// @Summary Report queue
// @Description List reports, oldest first
// @Tags Moderation
// @Produce json
// @Param status query string false "Status filter"
// @Param review_id query string false "Review filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/reports [get]
func (h *ModerationHandler) Reports(c *gin.Context) {
	var filter models.ReportFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	if status := c.Query("status"); status != "" {
		s := models.ReportStatus(status)
		filter.Status = &s
	}
	filter.ReviewID = c.Query("review_id")

	list, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list.Reports, &list.Pagination)
}

// ActionReport godoc
// @Summary Act on report
// @Description Resolve or dismiss a report
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body service.ActionReportRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/reports/{id}/action [post]
func (h *ModerationHandler) ActionReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ActionReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}

	report, err := h.reports.Action(c.Request.Context(), c.Param("id"), req, claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}

// DismissReport godoc
// @Summary Dismiss report
// @Description Close a report without touching the reviewed content
// @Tags Moderation
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/reports/{id}/dismiss [post]
func (h *ModerationHandler) DismissReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := service.ActionReportRequest{ActionType: models.ReportActionDismiss}
	report, err := h.reports.Action(c.Request.Context(), c.Param("id"), req, claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}
