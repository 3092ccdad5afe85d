package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestPeriodUnitsRounding(t *testing.T) {
	cases := map[int]int{0: 1, 10: 1, 45: 1, 46: 2, 90: 2, 91: 3, 135: 3}
	for minutes, want := range cases {
		assert.Equal(t, want, PeriodUnits(minutes), "minutes=%d", minutes)
	}
}

func TestTimePeriodUnitsAndLabels(t *testing.T) {
	p := &TimePeriod{ID: 1, Name: "J1", Start: strPtr("07:00:00"), End: strPtr("08:31")}
	assert.Equal(t, 3, p.Units())
	assert.Equal(t, "07:00 - 08:31", p.RangeLabel())

	missing := &TimePeriod{ID: 2, Start: strPtr("07:00")}
	assert.Equal(t, 1, missing.Units())
	assert.Equal(t, "", missing.RangeLabel())

	var none *TimePeriod
	assert.Equal(t, 1, none.Units())
	assert.Equal(t, "1 JP", PeriodLabel(none.Units()))
}

func TestClockMinutes(t *testing.T) {
	m, ok := ClockMinutes("13:05:59")
	assert.True(t, ok)
	assert.Equal(t, 13*60+5, m)

	_, ok = ClockMinutes("13")
	assert.False(t, ok)
	_, ok = ClockMinutes("aa:10")
	assert.False(t, ok)
}

func TestDraftRowMissing(t *testing.T) {
	day := int64(1)
	row := ScheduleDraftRow{DayID: &day}
	assert.Equal(t, []string{"time period", "subject", "teacher"}, row.Missing())
	assert.Len(t, ScheduleDraftRow{}.Missing(), 4)
	assert.Equal(t, "row 2: time period, subject, teacher not filled in", DraftRowError{Row: 2, Missing: row.Missing()}.String())
	assert.Equal(t, "row 4: day out of range", DraftRowError{Row: 4, Invalid: []string{"day"}}.String())
}

func TestSlotDetailCode(t *testing.T) {
	d := ScheduleSlotDetail{ScheduleSlot: ScheduleSlot{ID: 7}}
	assert.Equal(t, "J-7", d.Code())
	d.Period = &TimePeriod{Name: "Jam 3"}
	assert.Equal(t, "Jam 3", d.Code())
}
