package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	"github.com/noah-isme/sma-absensi-api/pkg/database"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
)

// Unique constraints on jadwal. Their names tell the two kinds of double booking apart.
const (
	constraintClassSlot   = "unique_jadwal_per_kelas"
	constraintTeacherSlot = "unique_jadwal_per_guru"
)

type scheduleRepository interface {
	FindByID(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlotDetail, error)
	ListDays(ctx context.Context) ([]models.Day, error)
	FindTimePeriods(ctx context.Context, ids []int64) ([]models.TimePeriod, error)
	BatchInsert(ctx context.Context, slots []models.ScheduleSlot) error
}

type scheduleChangeNotifier interface {
	ScheduleChanged(ctx context.Context, event models.ScheduleChangedEvent)
}

// BatchCreateSchedulesRequest is the payload of the batch creation form.
type BatchCreateSchedulesRequest struct {
	ClassID      int64                     `json:"kelas_id" validate:"required,gt=0"`
	SemesterID   int64                     `json:"semester_id" validate:"required,gt=0"`
	Rows         []models.ScheduleDraftRow `json:"rows"`
	ConfirmEmpty bool                      `json:"confirm_empty"`
}

// BatchCreateSchedulesResult reports what the batch wrote.
type BatchCreateSchedulesResult struct {
	Created     []models.ScheduleSlot `json:"created"`
	SkippedRows int                   `json:"skipped_rows"`
	NoOp        bool                  `json:"no_op"`
}

// ScheduleService owns the schedule catalog and guards it against double booking.
type ScheduleService struct {
	repo      scheduleRepository
	notifier  scheduleChangeNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, notifier scheduleChangeNotifier, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// GetSlot returns a slot with its relations.
func (s *ScheduleService) GetSlot(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Storage(err, "failed to load schedule")
	}
	return slot, nil
}

// WeeklyTimetable groups the matching slots into Monday..Saturday.
func (s *ScheduleService) WeeklyTimetable(ctx context.Context, filter models.ScheduleFilter) ([]models.TimetableDay, error) {
	if filter.ClassID <= 0 && filter.TeacherID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId or teacherId is required")
	}
	filter.DayIDs = nil

	days, err := s.repo.ListDays(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load days")
	}
	slots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list schedules")
	}

	names := make(map[int64]string, len(days))
	for _, day := range days {
		names[day.ID] = day.Name
	}

	week := make([]models.TimetableDay, 0, models.DaySaturday)
	index := make(map[int64]int, models.DaySaturday)
	for id := models.DayMonday; id <= models.DaySaturday; id++ {
		index[id] = len(week)
		week = append(week, models.TimetableDay{DayID: id, DayName: names[id], Entries: []models.TimetableEntry{}})
	}
	for _, slot := range slots {
		pos, ok := index[slot.DayID]
		if !ok {
			continue
		}
		week[pos].Entries = append(week[pos].Entries, models.TimetableEntry{
			ScheduleSlotDetail: slot,
			Code:               slot.Code(),
			TimeRange:          slot.Period.RangeLabel(),
			PeriodLabel:        models.PeriodLabel(slot.Period.Units()),
		})
	}
	return week, nil
}

// CreateBatch validates the draft rows and inserts them in one all-or-nothing write.
// Fully empty rows are skipped. Partially filled rows reject the whole batch before
// anything is written. A batch with nothing left to insert must be confirmed.
func (s *ScheduleService) CreateBatch(ctx context.Context, req BatchCreateSchedulesRequest) (*BatchCreateSchedulesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class and semester must be selected")
	}

	filled, skipped, err := filledDraftRows(req.Rows)
	if err != nil {
		return nil, err
	}
	if len(filled) == 0 {
		if !req.ConfirmEmpty {
			return nil, appErrors.Clone(appErrors.ErrEmptyBatch, "")
		}
		return &BatchCreateSchedulesResult{Created: []models.ScheduleSlot{}, SkippedRows: skipped, NoOp: true}, nil
	}

	units, err := s.periodUnits(ctx, filled)
	if err != nil {
		return nil, err
	}

	slots := make([]models.ScheduleSlot, 0, len(filled))
	for _, row := range filled {
		jp := units[*row.PeriodID]
		slots = append(slots, models.ScheduleSlot{
			DayID:       *row.DayID,
			PeriodID:    *row.PeriodID,
			ClassID:     req.ClassID,
			SubjectID:   *row.SubjectID,
			TeacherID:   *row.TeacherID,
			SemesterID:  req.SemesterID,
			PeriodUnits: &jp,
		})
	}

	if err := s.repo.BatchInsert(ctx, slots); err != nil {
		appErr := classifyScheduleInsertError(err)
		s.logger.Warn("schedule batch rejected",
			zap.Int64("class_id", req.ClassID),
			zap.Int64("semester_id", req.SemesterID),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
		return nil, appErr
	}

	ids := make([]int64, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, slot.ID)
	}
	if s.notifier != nil {
		s.notifier.ScheduleChanged(ctx, models.ScheduleChangedEvent{
			ClassID:    req.ClassID,
			SemesterID: req.SemesterID,
			SlotIDs:    ids,
		})
	}
	s.logger.Info("schedule batch created",
		zap.Int64("class_id", req.ClassID),
		zap.Int64("semester_id", req.SemesterID),
		zap.Int("rows", len(slots)),
	)
	return &BatchCreateSchedulesResult{Created: slots, SkippedRows: skipped}, nil
}

func (s *ScheduleService) periodUnits(ctx context.Context, rows []models.ScheduleDraftRow) (map[int64]int, error) {
	seen := make(map[int64]struct{}, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[*row.PeriodID]; ok {
			continue
		}
		seen[*row.PeriodID] = struct{}{}
		ids = append(ids, *row.PeriodID)
	}

	periods, err := s.repo.FindTimePeriods(ctx, ids)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load time periods")
	}
	units := make(map[int64]int, len(ids))
	for _, id := range ids {
		units[id] = 1
	}
	for i := range periods {
		units[periods[i].ID] = periods[i].Units()
	}
	return units, nil
}

// filledDraftRows drops fully empty rows and reports every partially filled one.
func filledDraftRows(rows []models.ScheduleDraftRow) ([]models.ScheduleDraftRow, int, error) {
	var (
		filled     []models.ScheduleDraftRow
		incomplete []models.DraftRowError
		messages   []string
		skipped    int
	)
	for i, row := range rows {
		missing := row.Missing()
		switch {
		case len(missing) == 4:
			skipped++
		case len(missing) > 0:
			rowErr := models.DraftRowError{Row: i + 1, Missing: missing}
			incomplete = append(incomplete, rowErr)
			messages = append(messages, rowErr.String())
		case *row.DayID < models.DayMonday || *row.DayID > models.DaySaturday:
			rowErr := models.DraftRowError{Row: i + 1, Invalid: []string{"day"}}
			incomplete = append(incomplete, rowErr)
			messages = append(messages, fmt.Sprintf("row %d: day must be Monday to Saturday", i+1))
		default:
			filled = append(filled, row)
		}
	}
	if len(incomplete) > 0 {
		return nil, skipped, appErrors.WithDetails(appErrors.ErrValidation, strings.Join(messages, "; "), incomplete)
	}
	return filled, skipped, nil
}

func classifyScheduleInsertError(err error) *appErrors.Error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return appErrors.Storage(err, "failed to create schedules")
	}
	switch {
	case strings.Contains(constraint, constraintClassSlot):
		return appErrors.Wrap(err, appErrors.ErrClassSlotConflict.Code, appErrors.ErrClassSlotConflict.Status, appErrors.ErrClassSlotConflict.Message)
	case strings.Contains(constraint, constraintTeacherSlot):
		return appErrors.Wrap(err, appErrors.ErrTeacherSlotConflict.Code, appErrors.ErrTeacherSlotConflict.Status, appErrors.ErrTeacherSlotConflict.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "duplicate schedule")
	}
}
