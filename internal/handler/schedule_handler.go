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

type scheduleService interface {
	GetSlot(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error)
	WeeklyTimetable(ctx context.Context, filter models.ScheduleFilter) ([]models.TimetableDay, error)
	CreateBatch(ctx context.Context, req service.BatchCreateSchedulesRequest) (*service.BatchCreateSchedulesResult, error)
}

// ScheduleHandler manages schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// CreateBatch godoc
// @Summary Create timetable slots for a class and semester
// @Description Empty rows are skipped. The batch is written all-or-nothing and rejected on class or teacher double booking.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.BatchCreateSchedulesRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Confirmed empty batch"
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules/batch [post]
func (h *ScheduleHandler) CreateBatch(c *gin.Context) {
	var req service.BatchCreateSchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.service.CreateBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.NoOp {
		response.JSON(c, http.StatusOK, result)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get a timetable slot
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	slot, err := h.service.GetSlot(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Weekly godoc
// @Summary Weekly timetable of a class or teacher
// @Tags Schedules
// @Produce json
// @Param classId query int false "Class ID"
// @Param teacherId query int false "Teacher ID"
// @Param semesterId query int false "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/weekly [get]
func (h *ScheduleHandler) Weekly(c *gin.Context) {
	var filter models.ScheduleFilter
	var err error
	if filter.ClassID, err = optionalIDQuery(c, "classId"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.TeacherID, err = optionalIDQuery(c, "teacherId"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.SemesterID, err = optionalIDQuery(c, "semesterId"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.ClassID == 0 && filter.TeacherID == 0 {
		if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
			filter.TeacherID = claims.TeacherID
		}
	}

	week, err := h.service.WeeklyTimetable(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week)
}
