package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
)

type attendanceStore interface {
	FindBySlotDate(ctx context.Context, scheduleID int64, date models.Date) (*models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	MarkCompleted(ctx context.Context, id int64, note *string) (*models.AttendanceRecord, error)
}

type attendanceSlotReader interface {
	FindByID(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error)
}

type classRosterReader interface {
	ListByClass(ctx context.Context, classID int64) ([]models.Student, error)
}

// CaptureAttendanceRequest carries one mark per student. Marks are H, S, I or A
// (or the full category name); blank marks and roster students left out of the
// map are recorded as present.
type CaptureAttendanceRequest struct {
	Date  string           `json:"tanggal" validate:"omitempty,datetime=2006-01-02"`
	Marks map[int64]string `json:"marks" validate:"dive,keys,gt=0,endkeys,attendance_mark"`
}

// CompleteSessionRequest closes a captured session with an optional note.
type CompleteSessionRequest struct {
	Date string `json:"tanggal" validate:"omitempty,datetime=2006-01-02"`
	Note string `json:"keterangan"`
}

// AttendanceServiceConfig carries the capture rules.
type AttendanceServiceConfig struct {
	Clock         Clock
	Location      *time.Location
	NoteMaxLength int
}

// AttendanceService stores one capture per slot and date.
type AttendanceService struct {
	records   attendanceStore
	slots     attendanceSlotReader
	roster    classRosterReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AttendanceServiceConfig
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(records attendanceStore, slots attendanceSlotReader, roster classRosterReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AttendanceServiceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("attendance_mark", func(fl validator.FieldLevel) bool {
		_, ok := models.StatusFromMark(fl.Field().String())
		return ok
	})
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NoteMaxLength <= 0 {
		cfg.NoteMaxLength = 150
	}
	return &AttendanceService{
		records:   records,
		slots:     slots,
		roster:    roster,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Capture replaces the statuses of (slotID, date). Repeating the same capture
// leaves a single identical record behind.
func (s *AttendanceService) Capture(ctx context.Context, slotID int64, req CaptureAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	slot, err := s.loadSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	students, err := s.roster.ListByClass(ctx, slot.ClassID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load class roster")
	}
	statuses, err := partitionMarks(req.Marks, students)
	if err != nil {
		return nil, err
	}

	stored, err := s.records.Upsert(ctx, &models.AttendanceRecord{ScheduleID: slotID, Date: date, Statuses: statuses})
	if err != nil {
		s.metrics.RecordCapture(false)
		s.logger.Error("attendance capture failed",
			zap.Int64("slot_id", slotID),
			zap.String("date", date.String()),
			zap.Error(err),
		)
		return nil, appErrors.Storage(err, "failed to save attendance")
	}
	s.metrics.RecordCapture(true)
	if err := s.cache.InvalidateClass(ctx, slot.ClassID); err != nil {
		s.logger.Warn("drop cached reports after capture",
			zap.Int64("slot_id", slotID),
			zap.String("date", date.String()),
			zap.Int64("class_id", slot.ClassID),
			zap.Error(err),
		)
	}
	s.logger.Info("attendance captured",
		zap.Int64("slot_id", slotID),
		zap.String("date", date.String()),
		zap.Int64("class_id", slot.ClassID),
	)
	return stored, nil
}

// Get returns the capture of (slotID, date). A blank date means today.
func (s *AttendanceService) Get(ctx context.Context, slotID int64, rawDate string) (*models.AttendanceRecord, error) {
	date, err := s.resolveDate(rawDate)
	if err != nil {
		return nil, err
	}
	record, err := s.records.FindBySlotDate(ctx, slotID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance not captured for this date")
		}
		return nil, appErrors.Storage(err, "failed to load attendance")
	}
	return record, nil
}

// Complete marks a captured session as done and stores its note.
func (s *AttendanceService) Complete(ctx context.Context, slotID int64, req CompleteSessionRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	note := strings.TrimSpace(req.Note)
	if utf8.RuneCountInString(note) > s.cfg.NoteMaxLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("note must be at most %d characters", s.cfg.NoteMaxLength))
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	record, err := s.records.FindBySlotDate(ctx, slotID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance must be captured before the session can be completed")
		}
		return nil, appErrors.Storage(err, "failed to load attendance")
	}

	// A blank note leaves an earlier note in place.
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	completed, err := s.records.MarkCompleted(ctx, record.ID, notePtr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Storage(err, "failed to complete session")
	}
	s.metrics.RecordCompletion()
	return completed, nil
}

func (s *AttendanceService) loadSlot(ctx context.Context, slotID int64) (*models.ScheduleSlotDetail, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no session found")
		}
		return nil, appErrors.Storage(err, "failed to load session")
	}
	return slot, nil
}

func (s *AttendanceService) resolveDate(raw string) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return models.DateOf(s.cfg.Clock.Now(), s.cfg.Location), nil
	}
	date, err := models.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return models.Date{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return date, nil
}

// partitionMarks turns per-student marks into the four buckets. Every roster
// student lands in exactly one bucket; marks for students outside the roster
// are rejected. With an empty roster the marks are taken as given.
func partitionMarks(marks map[int64]string, roster []models.Student) (models.AttendanceStatuses, error) {
	statuses := models.EmptyStatuses()
	place := func(id int64, mark string) error {
		key, ok := models.StatusFromMark(mark)
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance mark %q for student %d", mark, id))
		}
		statuses[key] = append(statuses[key], id)
		return nil
	}

	if len(roster) == 0 {
		for id, mark := range marks {
			if err := place(id, mark); err != nil {
				return nil, err
			}
		}
		return statuses.Normalize(), nil
	}

	known := make(map[int64]struct{}, len(roster))
	for _, student := range roster {
		known[student.ID] = struct{}{}
		if err := place(student.ID, marks[student.ID]); err != nil {
			return nil, err
		}
	}
	var outsiders []int64
	for id := range marks {
		if _, ok := known[id]; !ok {
			outsiders = append(outsiders, id)
		}
	}
	if len(outsiders) > 0 {
		sort.Slice(outsiders, func(i, j int) bool { return outsiders[i] < outsiders[j] })
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "marks given for students outside the class", outsiders)
	}
	return statuses.Normalize(), nil
}
