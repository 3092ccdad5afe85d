package service

import (
	"time"

	"github.com/noah-isme/sma-absensi-api/internal/models"
)

// Clock supplies "now". The session service never reads the system time directly.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// MinutesOfDay converts t to minutes since midnight in loc.
func MinutesOfDay(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Hour()*60 + t.Minute()
}

// ResolveSessionState derives the state of a session at nowMinutes.
// A completed capture wins regardless of the time. A period without usable
// boundaries is Upcoming.
func ResolveSessionState(nowMinutes int, period *models.TimePeriod, record *models.AttendanceRecord) models.SessionState {
	if record != nil && record.Completed {
		return models.SessionCompleted
	}
	start, end, ok := period.Bounds()
	if !ok {
		return models.SessionUpcoming
	}
	switch {
	case nowMinutes >= end:
		return models.SessionOverdue
	case nowMinutes >= start:
		return models.SessionOngoing
	default:
		return models.SessionUpcoming
	}
}

// BuildSessionView renders slot as a session on date.
func BuildSessionView(slot models.ScheduleSlotDetail, date models.Date, nowMinutes int, record *models.AttendanceRecord) models.SessionView {
	view := models.SessionView{
		ScheduleID:  slot.ID,
		Date:        date,
		Code:        slot.Code(),
		ClassID:     slot.ClassID,
		ClassName:   derefString(slot.ClassName),
		SubjectName: derefString(slot.SubjectName),
		TimeRange:   slot.Period.RangeLabel(),
		PeriodLabel: models.PeriodLabel(slot.Period.Units()),
		State:       ResolveSessionState(nowMinutes, slot.Period, record),
		Captured:    record != nil,
		Completed:   record != nil && record.Completed,
	}
	start, _, ok := slot.Period.Bounds()
	if !ok {
		start = -1
	}
	return view.WithStart(start)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
