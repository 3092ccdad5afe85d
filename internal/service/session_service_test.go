package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-absensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-absensi-api/pkg/errors"
)

func TestResolveSessionStateBoundaries(t *testing.T) {
	p := period(1, "J-1", "07:00", "08:30")
	start, end := 7*60, 8*60+30

	assert.Equal(t, models.SessionUpcoming, ResolveSessionState(start-1, p, nil))
	assert.Equal(t, models.SessionOngoing, ResolveSessionState(start, p, nil))
	assert.Equal(t, models.SessionOngoing, ResolveSessionState(end-1, p, nil))
	assert.Equal(t, models.SessionOverdue, ResolveSessionState(end, p, nil))

	captured := &models.AttendanceRecord{ID: 1}
	assert.Equal(t, models.SessionOverdue, ResolveSessionState(end, p, captured), "captured but not completed")
	assert.Equal(t, models.SessionOngoing, ResolveSessionState(start, p, captured))

	completed := &models.AttendanceRecord{ID: 1, Completed: true}
	assert.Equal(t, models.SessionCompleted, ResolveSessionState(end, p, completed))
	assert.Equal(t, models.SessionCompleted, ResolveSessionState(start-60, p, completed))
}

func TestResolveSessionStateMissingBoundaries(t *testing.T) {
	assert.Equal(t, models.SessionUpcoming, ResolveSessionState(23*60, nil, nil))
	assert.Equal(t, models.SessionUpcoming, ResolveSessionState(23*60, period(1, "J-1", "07:00", ""), nil))
	assert.Equal(t, models.SessionUpcoming, ResolveSessionState(23*60, period(1, "J-1", "x", "08:00"), nil))
	assert.Equal(t, models.SessionCompleted, ResolveSessionState(23*60, nil, &models.AttendanceRecord{Completed: true}))
}

func TestMinutesOfDayUsesLocation(t *testing.T) {
	now := time.Date(2025, 1, 6, 1, 15, 0, 0, time.UTC)
	assert.Equal(t, 8*60+15, MinutesOfDay(now, wib))
}

func TestBuildSessionViewLabels(t *testing.T) {
	slot := models.ScheduleSlotDetail{
		ScheduleSlot: models.ScheduleSlot{ID: 9, ClassID: 10},
		ClassName:    strPtr("X IPA 1"),
		SubjectName:  strPtr("Biologi"),
		Period:       period(3, "J-3", "07:00:00", "08:31:00"),
	}
	view := BuildSessionView(slot, models.NewDate(2025, time.January, 6), 7*60, nil)
	assert.Equal(t, "J-3", view.Code)
	assert.Equal(t, "07:00 - 08:31", view.TimeRange)
	assert.Equal(t, "3 JP", view.PeriodLabel)
	assert.Equal(t, models.SessionOngoing, view.State)
	assert.False(t, view.Captured)
	assert.Equal(t, 7*60, view.StartMinutes())

	bare := BuildSessionView(models.ScheduleSlotDetail{ScheduleSlot: models.ScheduleSlot{ID: 4}}, models.Date{}, 0, nil)
	assert.Equal(t, "J-4", bare.Code)
	assert.Equal(t, "", bare.TimeRange)
	assert.Equal(t, "1 JP", bare.PeriodLabel)
	assert.Equal(t, -1, bare.StartMinutes())
}

func newSessionFixture(now time.Time, limit int) (*SessionService, *scheduleRepoStub, *attendanceRepoStub) {
	schedules := newScheduleRepoStub()
	attendance := newAttendanceRepoStub()
	svc := NewSessionService(schedules, attendance, SessionServiceConfig{
		Clock:      fixedClock(now),
		Location:   wib,
		TodayLimit: limit,
	}, nil, zap.NewNop())
	return svc, schedules, attendance
}

func TestSessionServiceToday(t *testing.T) {
	// Monday 2025-01-06 08:00 WIB.
	now := time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC)
	svc, schedules, attendance := newSessionFixture(now, 0)

	schedules.add(models.ScheduleSlotDetail{ScheduleSlot: models.ScheduleSlot{ID: 1, DayID: 1, TeacherID: 9, ClassID: 10}, Period: period(3, "J-3", "09:00", "09:45")})
	schedules.add(models.ScheduleSlotDetail{ScheduleSlot: models.ScheduleSlot{ID: 2, DayID: 1, TeacherID: 9, ClassID: 11}, Period: period(1, "J-1", "07:00", "07:45")})
	schedules.add(models.ScheduleSlotDetail{ScheduleSlot: models.ScheduleSlot{ID: 3, DayID: 1, TeacherID: 9, ClassID: 12}, Period: period(2, "J-2", "07:45", "08:30")})
	schedules.add(models.ScheduleSlotDetail{ScheduleSlot: models.ScheduleSlot{ID: 4, DayID: 2, TeacherID: 9, ClassID: 10}, Period: period(1, "J-1", "07:00", "07:45")})
	schedules.add(models.ScheduleSlotDetail{ScheduleSlot: models.ScheduleSlot{ID: 5, DayID: 1, TeacherID: 8, ClassID: 10}, Period: period(1, "J-1", "07:00", "07:45")})

	today := models.NewDate(2025, time.January, 6)
	attendance.put(models.AttendanceRecord{ScheduleID: 2, Date: today, Completed: true})
	attendance.put(models.AttendanceRecord{ScheduleID: 3, Date: today})
	attendance.put(models.AttendanceRecord{ScheduleID: 1, Date: models.NewDate(2024, time.December, 30), Completed: true})

	views, err := svc.Today(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, int64(2), views[0].ScheduleID)
	assert.Equal(t, models.SessionCompleted, views[0].State)
	assert.True(t, views[0].Captured)

	assert.Equal(t, int64(3), views[1].ScheduleID)
	assert.Equal(t, models.SessionOngoing, views[1].State)
	assert.True(t, views[1].Captured)
	assert.False(t, views[1].Completed)

	assert.Equal(t, int64(1), views[2].ScheduleID)
	assert.Equal(t, models.SessionUpcoming, views[2].State)
	assert.False(t, views[2].Captured, "a capture from last week does not count")
	assert.Equal(t, "2025-01-06", views[2].Date.String())

	assert.Equal(t, []int64{1}, schedules.lastList.DayIDs)
}

func TestSessionServiceTodayLimit(t *testing.T) {
	now := time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC)
	svc, schedules, _ := newSessionFixture(now, 2)
	for i := int64(1); i <= 4; i++ {
		start := time.Date(0, 1, 1, 6+int(i), 0, 0, 0, time.UTC)
		schedules.add(models.ScheduleSlotDetail{
			ScheduleSlot: models.ScheduleSlot{ID: 10 - i, DayID: 1, TeacherID: 9},
			Period:       period(i, "", start.Format("15:04"), start.Add(45*time.Minute).Format("15:04")),
		})
	}

	views, err := svc.Today(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(9), views[0].ScheduleID)
	assert.Equal(t, int64(8), views[1].ScheduleID)
}

func TestSessionServiceTodaySunday(t *testing.T) {
	// Sunday 2025-01-05 10:00 WIB; still Sunday although UTC is 03:00.
	now := time.Date(2025, 1, 5, 3, 0, 0, 0, time.UTC)
	svc, schedules, _ := newSessionFixture(now, 0)
	schedules.listErr = errors.New("must not be called")

	views, err := svc.Today(context.Background(), 9)
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.Zero(t, schedules.listCalls)
}

func TestSessionServiceTodayUsesSchoolTimezone(t *testing.T) {
	// 2025-01-05 18:00 UTC is already Monday 01:00 in WIB.
	now := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)
	svc, schedules, _ := newSessionFixture(now, 0)
	schedules.add(models.ScheduleSlotDetail{ScheduleSlot: models.ScheduleSlot{ID: 1, DayID: 1, TeacherID: 9}, Period: period(1, "J-1", "07:00", "07:45")})

	views, err := svc.Today(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.SessionUpcoming, views[0].State)
}

func TestSessionServiceTodayStorageError(t *testing.T) {
	now := time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC)
	svc, schedules, _ := newSessionFixture(now, 0)
	schedules.listErr = errors.New("timeout")

	_, err := svc.Today(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestSessionServiceDetail(t *testing.T) {
	now := time.Date(2025, 1, 13, 2, 0, 0, 0, time.UTC)
	svc, schedules, attendance := newSessionFixture(now, 0)
	schedules.add(models.ScheduleSlotDetail{
		ScheduleSlot: models.ScheduleSlot{ID: 7, DayID: 1, ClassID: 10},
		ClassName:    strPtr("X IPA 1"),
		Period:       period(1, "J-1", "07:00", "07:45"),
	})

	detail, err := svc.Detail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "-", detail.PreviousNote)
	assert.Nil(t, detail.AttendanceID)
	assert.Equal(t, models.SessionOverdue, detail.State)

	attendance.put(models.AttendanceRecord{ScheduleID: 7, Date: models.NewDate(2024, time.December, 30), Note: strPtr("bab 1")})
	attendance.put(models.AttendanceRecord{ScheduleID: 7, Date: models.NewDate(2025, time.January, 6), Note: strPtr("bab 2"), Completed: true})
	attendance.put(models.AttendanceRecord{ID: 50, ScheduleID: 7, Date: models.NewDate(2025, time.January, 13), Note: strPtr("bab 3"), Completed: true})

	detail, err = svc.Detail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bab 2", detail.PreviousNote)
	assert.Equal(t, "bab 3", detail.Note)
	require.NotNil(t, detail.AttendanceID)
	assert.Equal(t, int64(50), *detail.AttendanceID)
	assert.Equal(t, models.SessionCompleted, detail.State)
	assert.Equal(t, "X IPA 1", detail.ClassName)
}

func TestSessionServiceDetailNotFound(t *testing.T) {
	svc, _, _ := newSessionFixture(time.Now(), 0)

	_, err := svc.Detail(context.Background(), 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, "no session found", appErrors.FromError(err).Message)
}
