package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
	"github.com/noah-isme/sma-absensi-api/pkg/export"
)

type reportScheduleReader interface {
	FindByID(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error)
	ListIDsByClass(ctx context.Context, classID int64) ([]int64, error)
}

type reportAttendanceReader interface {
	FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	ListBySlots(ctx context.Context, scheduleIDs []int64, from, to *models.Date) ([]models.AttendanceRecord, error)
}

type reportRosterReader interface {
	ListByClass(ctx context.Context, classID int64) ([]models.Student, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Student, error)
	FindClass(ctx context.Context, id int64) (*models.Class, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFormat selects the rendering of an exported report.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ReportRange is an optional inclusive date range in YYYY-MM-DD.
type ReportRange struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// ExportFile is a rendered report ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService rolls captures up into class summaries, history grids and exports.
type ReportService struct {
	schedules  reportScheduleReader
	attendance reportAttendanceReader
	roster     reportRosterReader
	cache      *CacheService
	metrics    *MetricsService
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	ttl        time.Duration
}

// NewReportService constructs a ReportService. Nil renderers fall back to pkg/export.
func NewReportService(schedules reportScheduleReader, attendance reportAttendanceReader, roster reportRosterReader, cache *CacheService, metrics *MetricsService, csv csvRenderer, pdf pdfRenderer, ttl time.Duration, logger *zap.Logger) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		schedules:  schedules,
		attendance: attendance,
		roster:     roster,
		cache:      cache,
		metrics:    metrics,
		csv:        csv,
		pdf:        pdf,
		logger:     logger,
		ttl:        ttl,
	}
}

// ClassSummary returns cumulative counts for every student of the class, ordered by name.
func (s *ReportService) ClassSummary(ctx context.Context, classID int64, rng ReportRange) (*models.ClassAttendanceSummary, error) {
	from, to, err := parseRange(rng)
	if err != nil {
		return nil, err
	}
	key := attendanceReportKey("summary", classID, from, to)
	var cached models.ClassAttendanceSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	class, students, records, err := s.classRecords(ctx, classID, from, to)
	if err != nil {
		return nil, err
	}
	summary := &models.ClassAttendanceSummary{
		ClassID:   class.ID,
		ClassName: class.Name,
		From:      from,
		To:        to,
		Records:   len(records),
		Students:  Accumulate(students, records),
	}
	_ = s.cache.Set(ctx, key, summary, s.ttl)
	return summary, nil
}

// ClassHistory returns the per-student, per-date grid of the class.
func (s *ReportService) ClassHistory(ctx context.Context, classID int64, rng ReportRange) (*models.AttendanceGrid, error) {
	from, to, err := parseRange(rng)
	if err != nil {
		return nil, err
	}
	key := attendanceReportKey("history", classID, from, to)
	var cached models.AttendanceGrid
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	class, students, records, err := s.classRecords(ctx, classID, from, to)
	if err != nil {
		return nil, err
	}
	dates, rows := BuildGrid(students, records)
	grid := &models.AttendanceGrid{
		ClassID:   class.ID,
		ClassName: class.Name,
		From:      from,
		To:        to,
		Dates:     dates,
		Rows:      rows,
	}
	_ = s.cache.Set(ctx, key, grid, s.ttl)
	return grid, nil
}

// RecordDetail resolves the students of a single capture.
func (s *ReportService) RecordDetail(ctx context.Context, recordID int64) (*models.AttendanceRecordDetail, error) {
	record, err := s.attendance.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Storage(err, "failed to load attendance record")
	}

	var className string
	slot, err := s.schedules.FindByID(ctx, record.ScheduleID)
	switch {
	case err == nil:
		className = derefString(slot.ClassName)
	case errors.Is(err, sql.ErrNoRows):
		s.logger.Warn("attendance record points at a missing schedule", zap.Int64("record_id", recordID), zap.Int64("slot_id", record.ScheduleID))
	default:
		return nil, appErrors.Storage(err, "failed to load schedule")
	}

	students, err := s.roster.ListByIDs(ctx, recordStudentIDs(*record))
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load students")
	}
	return &models.AttendanceRecordDetail{
		Record:    *record,
		ClassName: className,
		Students:  RecordStudents(*record, students),
	}, nil
}

// Export renders the class history as CSV or PDF.
func (s *ReportService) Export(ctx context.Context, classID int64, rng ReportRange, format ExportFormat) (*ExportFile, error) {
	format = ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	grid, err := s.ClassHistory(ctx, classID, rng)
	if err != nil {
		return nil, err
	}
	dataset := historyDataset(grid)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case ExportPDF:
		body, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		s.logger.Error("render attendance export", zap.Int64("class_id", classID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportFile{
		Filename:    exportFilename(grid, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (s *ReportService) classRecords(ctx context.Context, classID int64, from, to *models.Date) (*models.Class, []models.Student, []models.AttendanceRecord, error) {
	if classID <= 0 {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "class is required")
	}
	class, err := s.roster.FindClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, nil, appErrors.Storage(err, "failed to load class")
	}
	students, err := s.roster.ListByClass(ctx, classID)
	if err != nil {
		return nil, nil, nil, appErrors.Storage(err, "failed to load class roster")
	}
	slotIDs, err := s.schedules.ListIDsByClass(ctx, classID)
	if err != nil {
		return nil, nil, nil, appErrors.Storage(err, "failed to load class schedules")
	}

	start := time.Now()
	records, err := s.attendance.ListBySlots(ctx, slotIDs, from, to)
	s.metrics.ObserveDBQuery("attendance_by_class", time.Since(start))
	if err != nil {
		return nil, nil, nil, appErrors.Storage(err, "failed to load attendance")
	}
	return class, students, records, nil
}

func parseRange(rng ReportRange) (*models.Date, *models.Date, error) {
	parse := func(raw string) (*models.Date, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		return &d, nil
	}
	from, err := parse(rng.From)
	if err != nil {
		return nil, nil, err
	}
	to, err := parse(rng.To)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return from, to, nil
}

func historyDataset(grid *models.AttendanceGrid) export.Dataset {
	layout := dateColumnLayout(grid.Dates)
	headers := []string{"No", "Name"}
	weights := []float64{1, 6}
	for _, d := range grid.Dates {
		headers = append(headers, d.Format(layout))
		weights = append(weights, 1)
	}
	totals := []string{"H", "S", "I", "A"}
	headers = append(headers, totals...)
	weights = append(weights, 1, 1, 1, 1)

	rows := make([]map[string]string, 0, len(grid.Rows))
	for i, row := range grid.Rows {
		values := map[string]string{
			"No":   strconv.Itoa(i + 1),
			"Name": row.Name,
			"H":    strconv.Itoa(row.Counts.Present),
			"S":    strconv.Itoa(row.Counts.Sick),
			"I":    strconv.Itoa(row.Counts.Excused),
			"A":    strconv.Itoa(row.Counts.Absent),
		}
		for j, d := range grid.Dates {
			values[d.Format(layout)] = row.Cells[j]
		}
		rows = append(rows, values)
	}

	return export.Dataset{
		Title: "Attendance Recap",
		Meta: []string{
			"Class: " + grid.ClassName,
			"Period: " + periodLabel(grid.From, grid.To),
		},
		Headers: headers,
		Rows:    rows,
		Weights: weights,
	}
}

// dateColumnLayout keeps date headers short unless the range spans several years.
func dateColumnLayout(dates []models.Date) string {
	for i := 1; i < len(dates); i++ {
		if dates[i].Year() != dates[0].Year() {
			return "02/01/06"
		}
	}
	return "02/01"
}

func periodLabel(from, to *models.Date) string {
	switch {
	case from == nil && to == nil:
		return "all dates"
	case from == nil:
		return "until " + to.String()
	case to == nil:
		return "from " + from.String()
	default:
		return from.String() + " - " + to.String()
	}
}

var filenameUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func exportFilename(grid *models.AttendanceGrid, format ExportFormat) string {
	name := strings.Trim(filenameUnsafe.ReplaceAllString(strings.ToLower(grid.ClassName), "-"), "-")
	if name == "" {
		name = fmt.Sprintf("class-%d", grid.ClassID)
	}
	return fmt.Sprintf("attendance_%s_%s_%s.%s", name, boundKey(grid.From), boundKey(grid.To), format)
}
