package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	"github.com/noah-isme/sma-absensi-api/internal/service"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
	"github.com/noah-isme/sma-absensi-api/pkg/response"
)

type reportService interface {
	ClassSummary(ctx context.Context, classID int64, rng service.ReportRange) (*models.ClassAttendanceSummary, error)
	ClassHistory(ctx context.Context, classID int64, rng service.ReportRange) (*models.AttendanceGrid, error)
	RecordDetail(ctx context.Context, recordID int64) (*models.AttendanceRecordDetail, error)
	Export(ctx context.Context, classID int64, rng service.ReportRange, format service.ExportFormat) (*service.ExportFile, error)
}

// ReportHandler exposes attendance reporting endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Summary godoc
// @Summary Cumulative attendance counts per student of a class
// @Tags Reports
// @Produce json
// @Param id path int true "Class ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	classID, rng, ok := h.classRange(c)
	if !ok {
		return
	}
	summary, err := h.reports.ClassSummary(c.Request.Context(), classID, rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// History godoc
// @Summary Per-student, per-date attendance grid of a class
// @Tags Reports
// @Produce json
// @Param id path int true "Class ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance/history [get]
func (h *ReportHandler) History(c *gin.Context) {
	classID, rng, ok := h.classRange(c)
	if !ok {
		return
	}
	grid, err := h.reports.ClassHistory(c.Request.Context(), classID, rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid)
}

// Export godoc
// @Summary Download the attendance recap of a class
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Class ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /classes/{id}/attendance/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	classID, rng, ok := h.classRange(c)
	if !ok {
		return
	}
	file, err := h.reports.Export(c.Request.Context(), classID, rng, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// Record godoc
// @Summary Students and statuses of one capture
// @Tags Reports
// @Produce json
// @Param id path int true "Attendance record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *ReportHandler) Record(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.reports.RecordDetail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

func (h *ReportHandler) classRange(c *gin.Context) (int64, service.ReportRange, bool) {
	classID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return 0, service.ReportRange{}, false
	}
	var rng service.ReportRange
	if err := c.ShouldBindQuery(&rng); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid date range"))
		return 0, service.ReportRange{}, false
	}
	return classID, rng, true
}
