package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
)

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

var wib = time.FixedZone("WIB", 7*60*60)

func period(id int64, name, start, end string) *models.TimePeriod {
	p := &models.TimePeriod{ID: id, Name: name}
	if start != "" {
		p.Start = strPtr(start)
	}
	if end != "" {
		p.End = strPtr(end)
	}
	return p
}

// scheduleRepoStub keeps slots in memory and enforces both jadwal unique
// constraints the way Postgres does, rejecting the whole batch.
type scheduleRepoStub struct {
	slots     map[int64]models.ScheduleSlotDetail
	days      []models.Day
	periods   map[int64]models.TimePeriod
	nextID    int64
	inserts   int
	insertErr error
	listErr   error
	lastList  models.ScheduleFilter
	listCalls int
}

func newScheduleRepoStub() *scheduleRepoStub {
	return &scheduleRepoStub{
		slots:   map[int64]models.ScheduleSlotDetail{},
		periods: map[int64]models.TimePeriod{},
		nextID:  100,
		days: []models.Day{
			{ID: 1, Name: "Senin"}, {ID: 2, Name: "Selasa"}, {ID: 3, Name: "Rabu"},
			{ID: 4, Name: "Kamis"}, {ID: 5, Name: "Jumat"}, {ID: 6, Name: "Sabtu"},
		},
	}
}

func (r *scheduleRepoStub) add(detail models.ScheduleSlotDetail) {
	r.slots[detail.ID] = detail
}

func (r *scheduleRepoStub) FindByID(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

func (r *scheduleRepoStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlotDetail, error) {
	r.listCalls++
	r.lastList = filter
	if r.listErr != nil {
		return nil, r.listErr
	}
	days := map[int64]bool{}
	for _, d := range filter.DayIDs {
		days[d] = true
	}
	var out []models.ScheduleSlotDetail
	for _, slot := range r.slots {
		if filter.ClassID > 0 && slot.ClassID != filter.ClassID {
			continue
		}
		if filter.TeacherID > 0 && slot.TeacherID != filter.TeacherID {
			continue
		}
		if filter.SemesterID > 0 && slot.SemesterID != filter.SemesterID {
			continue
		}
		if len(days) > 0 && !days[slot.DayID] {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *scheduleRepoStub) ListIDsByClass(ctx context.Context, classID int64) ([]int64, error) {
	var ids []int64
	for _, slot := range r.slots {
		if slot.ClassID == classID {
			ids = append(ids, slot.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *scheduleRepoStub) ListDays(ctx context.Context) ([]models.Day, error) {
	return r.days, nil
}

func (r *scheduleRepoStub) FindTimePeriods(ctx context.Context, ids []int64) ([]models.TimePeriod, error) {
	var out []models.TimePeriod
	for _, id := range ids {
		if p, ok := r.periods[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *scheduleRepoStub) BatchInsert(ctx context.Context, slots []models.ScheduleSlot) error {
	r.inserts++
	if r.insertErr != nil {
		return r.insertErr
	}
	type classKey struct{ class, day, period, semester int64 }
	type teacherKey struct{ teacher, day, period, semester int64 }
	classTaken := map[classKey]bool{}
	teacherTaken := map[teacherKey]bool{}
	for _, existing := range r.slots {
		classTaken[classKey{existing.ClassID, existing.DayID, existing.PeriodID, existing.SemesterID}] = true
		teacherTaken[teacherKey{existing.TeacherID, existing.DayID, existing.PeriodID, existing.SemesterID}] = true
	}
	for _, slot := range slots {
		ck := classKey{slot.ClassID, slot.DayID, slot.PeriodID, slot.SemesterID}
		tk := teacherKey{slot.TeacherID, slot.DayID, slot.PeriodID, slot.SemesterID}
		if classTaken[ck] {
			return fmt.Errorf("insert schedules: %w", &pq.Error{Code: "23505", Constraint: "unique_jadwal_per_kelas"})
		}
		if teacherTaken[tk] {
			return fmt.Errorf("insert schedules: %w", &pq.Error{Code: "23505", Constraint: "unique_jadwal_per_guru"})
		}
		classTaken[ck] = true
		teacherTaken[tk] = true
	}
	for i := range slots {
		r.nextID++
		slots[i].ID = r.nextID
		r.slots[slots[i].ID] = models.ScheduleSlotDetail{ScheduleSlot: slots[i]}
	}
	return nil
}

// attendanceRepoStub mirrors the absen upsert: one row per (slot, date), a
// re-capture replaces statuses only.
type attendanceRepoStub struct {
	mu        sync.Mutex
	records   map[string]*models.AttendanceRecord
	nextID    int64
	upsertErr error
	listErr   error
	listCalls int
	now       time.Time
}

func newAttendanceRepoStub() *attendanceRepoStub {
	return &attendanceRepoStub{records: map[string]*models.AttendanceRecord{}, now: time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC)}
}

func attendanceKey(slotID int64, date models.Date) string {
	return fmt.Sprintf("%d|%s", slotID, date)
}

func (r *attendanceRepoStub) put(record models.AttendanceRecord) {
	if record.ID == 0 {
		r.nextID++
		record.ID = r.nextID
	} else if record.ID > r.nextID {
		r.nextID = record.ID
	}
	if record.Statuses == nil {
		record.Statuses = models.EmptyStatuses()
	}
	r.records[attendanceKey(record.ScheduleID, record.Date)] = &record
}

func (r *attendanceRepoStub) FindBySlotDate(ctx context.Context, scheduleID int64, date models.Date) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[attendanceKey(scheduleID, date)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *record
	return &cp, nil
}

func (r *attendanceRepoStub) FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ID == id {
			cp := *record
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *attendanceRepoStub) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	key := attendanceKey(record.ScheduleID, record.Date)
	r.now = r.now.Add(time.Minute)
	if existing, ok := r.records[key]; ok {
		existing.Statuses = record.Statuses.Normalize()
		existing.UpdatedAt = r.now
		cp := *existing
		return &cp, nil
	}
	r.nextID++
	stored := &models.AttendanceRecord{
		ID:         r.nextID,
		ScheduleID: record.ScheduleID,
		Date:       record.Date,
		Statuses:   record.Statuses.Normalize(),
		UpdatedAt:  r.now,
	}
	r.records[key] = stored
	cp := *stored
	return &cp, nil
}

func (r *attendanceRepoStub) MarkCompleted(ctx context.Context, id int64, note *string) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ID == id {
			record.Completed = true
			if note != nil {
				record.Note = note
			}
			cp := *record
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *attendanceRepoStub) ListBySlots(ctx context.Context, scheduleIDs []int64, from, to *models.Date) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	wanted := map[int64]bool{}
	for _, id := range scheduleIDs {
		wanted[id] = true
	}
	var out []models.AttendanceRecord
	for _, record := range r.records {
		if !wanted[record.ScheduleID] {
			continue
		}
		if from != nil && record.Date.Before(*from) {
			continue
		}
		if to != nil && to.Before(record.Date) {
			continue
		}
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *attendanceRepoStub) PreviousNote(ctx context.Context, scheduleID int64, before models.Date) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best *models.AttendanceRecord
	)
	for _, record := range r.records {
		if record.ScheduleID != scheduleID || !record.Date.Before(before) || record.Note == nil || *record.Note == "" {
			continue
		}
		if best == nil || best.Date.Before(record.Date) {
			best = record
		}
	}
	if best == nil {
		return "", nil
	}
	return *best.Note, nil
}

func (r *attendanceRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type rosterStub struct {
	classes  map[int64]models.Class
	students []models.Student
	err      error
}

func (r *rosterStub) ListByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Student
	for _, s := range r.students {
		if s.ClassID != nil && *s.ClassID == classID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *rosterStub) ListByIDs(ctx context.Context, ids []int64) ([]models.Student, error) {
	wanted := map[int64]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.Student
	for _, s := range r.students {
		if wanted[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *rosterStub) FindClass(ctx context.Context, id int64) (*models.Class, error) {
	class, ok := r.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

type notifierStub struct {
	events []models.ScheduleChangedEvent
}

func (n *notifierStub) ScheduleChanged(ctx context.Context, event models.ScheduleChangedEvent) {
	n.events = append(n.events, event)
}

// memoryCache is a CacheRepository with exact-key storage and prefix deletes.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *models.ClassAttendanceSummary:
		*d = *value.(*models.ClassAttendanceSummary)
	case *models.AttendanceGrid:
		*d = *value.(*models.AttendanceGrid)
	default:
		return fmt.Errorf("unsupported cache type %T", dest)
	}
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	m.entries = map[string]interface{}{}
	return nil
}
