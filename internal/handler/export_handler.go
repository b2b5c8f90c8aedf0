package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/internlens/internlens-api/internal/service"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
	"github.com/internlens/internlens-api/pkg/response"
)

// ExportHandler streams review exports to admins.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ApprovedReviews godoc
// @Summary Export approved reviews
// @Description Download the approved review corpus as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "Export format (csv or pdf)"
// @Param company_id query string false "Company filter"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/exports/reviews [get]
func (h *ExportHandler) ApprovedReviews(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	if format != service.ExportFormatCSV && format != service.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	file, err := h.service.ApprovedReviews(c.Request.Context(), c.Query("company_id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
