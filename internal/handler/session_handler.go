package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-absensi-api/internal/middleware"
	"github.com/noah-isme/sma-absensi-api/internal/models"
	"github.com/noah-isme/sma-absensi-api/internal/service"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
	"github.com/noah-isme/sma-absensi-api/pkg/response"
)

type sessionService interface {
	Today(ctx context.Context, teacherID int64) ([]models.SessionView, error)
	Detail(ctx context.Context, slotID int64) (*models.SessionDetail, error)
}

type attendanceService interface {
	Capture(ctx context.Context, slotID int64, req service.CaptureAttendanceRequest) (*models.AttendanceRecord, error)
	Get(ctx context.Context, slotID int64, rawDate string) (*models.AttendanceRecord, error)
	Complete(ctx context.Context, slotID int64, req service.CompleteSessionRequest) (*models.AttendanceRecord, error)
}

// SessionHandler serves the teacher's daily sessions and their attendance.
type SessionHandler struct {
	sessions   sessionService
	attendance attendanceService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService, attendance *service.AttendanceService) *SessionHandler {
	return &SessionHandler{sessions: sessions, attendance: attendance}
}

// Today godoc
// @Summary Today's sessions of a teacher
// @Description Teachers get their own sessions. Administrators pass teacherId.
// @Tags Sessions
// @Produce json
// @Param teacherId query int false "Teacher ID (administrators only)"
// @Success 200 {object} response.Envelope
// @Router /sessions/today [get]
func (h *SessionHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	teacherID := claims.TeacherID
	if claims.Role == models.RoleAdmin {
		id, err := optionalIDQuery(c, "teacherId")
		if err != nil {
			response.Error(c, err)
			return
		}
		if id > 0 {
			teacherID = id
		}
	}

	sessions, err := h.sessions.Today(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(sessions))
	response.JSON(c, http.StatusOK, sessions, middleware.ResponseMeta(c))
}

// Detail godoc
// @Summary Session detail with previous note
// @Tags Sessions
// @Produce json
// @Param slotId path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{slotId} [get]
func (h *SessionHandler) Detail(c *gin.Context) {
	slotID, err := idParam(c, "slotId")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.sessions.Detail(c.Request.Context(), slotID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Capture godoc
// @Summary Capture attendance for a session
// @Description Replaces any earlier capture of the same slot and date. Unmarked students default to present.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param slotId path int true "Schedule ID"
// @Param payload body service.CaptureAttendanceRequest true "Marks keyed by student id"
// @Success 200 {object} response.Envelope
// @Router /sessions/{slotId}/attendance [put]
func (h *SessionHandler) Capture(c *gin.Context) {
	slotID, err := idParam(c, "slotId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CaptureAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	record, err := h.attendance.Capture(c.Request.Context(), slotID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Attendance godoc
// @Summary Read the capture of a session
// @Tags Sessions
// @Produce json
// @Param slotId path int true "Schedule ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{slotId}/attendance [get]
func (h *SessionHandler) Attendance(c *gin.Context) {
	slotID, err := idParam(c, "slotId")
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.attendance.Get(c.Request.Context(), slotID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Complete godoc
// @Summary Mark a captured session as completed
// @Tags Sessions
// @Accept json
// @Produce json
// @Param slotId path int true "Schedule ID"
// @Param payload body service.CompleteSessionRequest false "Date and note"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{slotId}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	slotID, err := idParam(c, "slotId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CompleteSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
			return
		}
	}
	record, err := h.attendance.Complete(c.Request.Context(), slotID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}
