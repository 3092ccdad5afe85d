package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
)

type sessionScheduleReader interface {
	FindByID(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlotDetail, error)
}

type sessionAttendanceReader interface {
	FindBySlotDate(ctx context.Context, scheduleID int64, date models.Date) (*models.AttendanceRecord, error)
	ListBySlots(ctx context.Context, scheduleIDs []int64, from, to *models.Date) ([]models.AttendanceRecord, error)
	PreviousNote(ctx context.Context, scheduleID int64, before models.Date) (string, error)
}

// noPreviousNote is shown when a slot has no earlier note.
const noPreviousNote = "-"

// SessionService resolves today's sessions from the timetable and captures.
// Reads are sequential lookups without a shared snapshot.
type SessionService struct {
	schedules  sessionScheduleReader
	attendance sessionAttendanceReader
	clock      Clock
	location   *time.Location
	todayLimit int
	metrics    *MetricsService
	logger     *zap.Logger
}

// SessionServiceConfig carries the school-wide settings of the resolver.
type SessionServiceConfig struct {
	Clock      Clock
	Location   *time.Location
	TodayLimit int
}

// NewSessionService constructs a SessionService.
func NewSessionService(schedules sessionScheduleReader, attendance sessionAttendanceReader, cfg SessionServiceConfig, metrics *MetricsService, logger *zap.Logger) *SessionService {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		schedules:  schedules,
		attendance: attendance,
		clock:      cfg.Clock,
		location:   cfg.Location,
		todayLimit: cfg.TodayLimit,
		metrics:    metrics,
		logger:     logger,
	}
}

// Today returns the teacher's sessions for the current school day ordered by
// start time. Sundays have no sessions.
func (s *SessionService) Today(ctx context.Context, teacherID int64) ([]models.SessionView, error) {
	if teacherID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is required")
	}
	now := s.clock.Now().In(s.location)
	today := models.DateOf(now, s.location)
	day := today.DayID()
	if day < models.DayMonday || day > models.DaySaturday {
		return []models.SessionView{}, nil
	}

	slots, err := s.schedules.List(ctx, models.ScheduleFilter{TeacherID: teacherID, DayIDs: []int64{day}})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list today's schedules")
	}
	if len(slots) == 0 {
		return []models.SessionView{}, nil
	}

	ids := make([]int64, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, slot.ID)
	}
	records, err := s.attendance.ListBySlots(ctx, ids, &today, &today)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load today's attendance")
	}
	bySlot := make(map[int64]*models.AttendanceRecord, len(records))
	for i := range records {
		bySlot[records[i].ScheduleID] = &records[i]
	}

	minutes := MinutesOfDay(now, s.location)
	views := make([]models.SessionView, 0, len(slots))
	for _, slot := range slots {
		view := BuildSessionView(slot, today, minutes, bySlot[slot.ID])
		s.metrics.RecordSessionState(view.State)
		views = append(views, view)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].StartMinutes() < views[j].StartMinutes()
	})
	if s.todayLimit > 0 && len(views) > s.todayLimit {
		views = views[:s.todayLimit]
	}
	return views, nil
}

// Detail resolves one slot as today's session together with its notes.
func (s *SessionService) Detail(ctx context.Context, slotID int64) (*models.SessionDetail, error) {
	slot, err := s.schedules.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no session found")
		}
		return nil, appErrors.Storage(err, "failed to load session")
	}

	now := s.clock.Now().In(s.location)
	today := models.DateOf(now, s.location)

	record, err := s.attendance.FindBySlotDate(ctx, slotID, today)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Storage(err, "failed to load attendance")
		}
		record = nil
	}

	previous, err := s.attendance.PreviousNote(ctx, slotID, today)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load previous note")
	}
	if previous == "" {
		previous = noPreviousNote
	}

	detail := &models.SessionDetail{
		SessionView:  BuildSessionView(*slot, today, MinutesOfDay(now, s.location), record),
		PreviousNote: previous,
	}
	if record != nil {
		id := record.ID
		detail.AttendanceID = &id
		detail.Note = derefString(record.Note)
	}
	s.metrics.RecordSessionState(detail.State)
	return detail, nil
}
