package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day ids used by the hari table. Sunday has no lessons.
const (
	DayMonday   int64 = 1
	DaySaturday int64 = 6
)

// MinutesPerPeriodUnit is the length of one JP (jam pelajaran).
const MinutesPerPeriodUnit = 45

// TimePeriod is a row of the jam table: a named lesson window.
type TimePeriod struct {
	ID    int64   `db:"id" json:"id"`
	Name  string  `db:"nama" json:"name"`
	Start *string `db:"mulai" json:"start,omitempty"`
	End   *string `db:"selesai" json:"end,omitempty"`
}

// Bounds returns the window in minutes since midnight. ok is false when either
// boundary is missing or unparseable.
func (p *TimePeriod) Bounds() (start, end int, ok bool) {
	if p == nil || p.Start == nil || p.End == nil {
		return 0, 0, false
	}
	start, okStart := ClockMinutes(*p.Start)
	end, okEnd := ClockMinutes(*p.End)
	if !okStart || !okEnd {
		return 0, 0, false
	}
	return start, end, true
}

// RangeLabel renders "HH:MM - HH:MM", or "" when the window is incomplete.
func (p *TimePeriod) RangeLabel() string {
	start, end, ok := p.Bounds()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s - %s", formatClock(start), formatClock(end))
}

// Units is the JP count of the window: one per 45 minutes, partial blocks
// rounded up, never below one. Missing boundaries count as a single unit.
func (p *TimePeriod) Units() int {
	start, end, ok := p.Bounds()
	if !ok {
		return 1
	}
	return PeriodUnits(end - start)
}

// PeriodUnits converts a duration in minutes into JP units.
func PeriodUnits(minutes int) int {
	units := (minutes + MinutesPerPeriodUnit - 1) / MinutesPerPeriodUnit
	if minutes <= 0 || units < 1 {
		return 1
	}
	return units
}

// PeriodLabel formats a JP count the way schedules print it.
func PeriodLabel(units int) string {
	return fmt.Sprintf("%d JP", units)
}

// ClockMinutes parses HH:MM or HH:MM:SS into minutes since midnight.
func ClockMinutes(raw string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ScheduleSlot is a weekly timetable entry (jadwal).
type ScheduleSlot struct {
	ID          int64 `db:"id" json:"id"`
	DayID       int64 `db:"hari_id" json:"hari_id"`
	PeriodID    int64 `db:"jam_id" json:"jam_id"`
	ClassID     int64 `db:"kelas_id" json:"kelas_id"`
	SubjectID   int64 `db:"mapel_id" json:"mapel_id"`
	TeacherID   int64 `db:"guru_id" json:"guru_id"`
	SemesterID  int64 `db:"semester_id" json:"semester_id"`
	PeriodUnits *int  `db:"jp" json:"jp,omitempty"`
}

// ScheduleSlotDetail is a slot with its related rows resolved. Relations that
// could not be joined are left nil.
type ScheduleSlotDetail struct {
	ScheduleSlot
	DayName     *string     `json:"day_name,omitempty"`
	ClassName   *string     `json:"class_name,omitempty"`
	SubjectName *string     `json:"subject_name,omitempty"`
	TeacherName *string     `json:"teacher_name,omitempty"`
	Period      *TimePeriod `json:"period,omitempty"`
}

// Code is the short label shown on session cards.
func (d *ScheduleSlotDetail) Code() string {
	if d.Period != nil && d.Period.Name != "" {
		return d.Period.Name
	}
	return fmt.Sprintf("J-%d", d.ID)
}

// ScheduleFilter narrows catalog reads.
type ScheduleFilter struct {
	ClassID    int64
	TeacherID  int64
	SemesterID int64
	DayIDs     []int64
}

// ScheduleDraftRow is one row of a batch creation form. Nil means "not selected".
type ScheduleDraftRow struct {
	DayID     *int64 `json:"hari_id"`
	PeriodID  *int64 `json:"jam_id"`
	SubjectID *int64 `json:"mapel_id"`
	TeacherID *int64 `json:"guru_id"`
}

// Missing lists the unselected fields in form order.
func (r ScheduleDraftRow) Missing() []string {
	var missing []string
	if r.DayID == nil || *r.DayID == 0 {
		missing = append(missing, "day")
	}
	if r.PeriodID == nil || *r.PeriodID == 0 {
		missing = append(missing, "time period")
	}
	if r.SubjectID == nil || *r.SubjectID == 0 {
		missing = append(missing, "subject")
	}
	if r.TeacherID == nil || *r.TeacherID == 0 {
		missing = append(missing, "teacher")
	}
	return missing
}

// DraftRowError reports a rejected draft row (1-indexed). Missing lists fields
// left empty, Invalid lists fields filled with an unusable value.
type DraftRowError struct {
	Row     int      `json:"row"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

// String renders the error the way the form shows it.
func (e DraftRowError) String() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, strings.Join(e.Missing, ", ")+" not filled in")
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, strings.Join(e.Invalid, ", ")+" out of range")
	}
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(parts, "; "))
}

// TimetableEntry is a slot rendered for the weekly timetable.
type TimetableEntry struct {
	ScheduleSlotDetail
	Code        string `json:"code"`
	TimeRange   string `json:"time_range,omitempty"`
	PeriodLabel string `json:"period_label"`
}

// TimetableDay groups entries for one weekday.
type TimetableDay struct {
	DayID   int64            `json:"hari_id"`
	DayName string           `json:"day_name"`
	Entries []TimetableEntry `json:"entries"`
}

// Day is a row of the hari table.
type Day struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"nama" json:"name"`
}

// ScheduleChangedEvent is published after slots are written.
type ScheduleChangedEvent struct {
	ClassID    int64     `json:"kelas_id"`
	SemesterID int64     `json:"semester_id"`
	SlotIDs    []int64   `json:"slot_ids"`
	At         time.Time `json:"at"`
}
