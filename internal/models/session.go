package models

// SessionState is the lifecycle of a slot's session for the current day.
type SessionState string

const (
	SessionUpcoming  SessionState = "UPCOMING"
	SessionOngoing   SessionState = "ONGOING"
	SessionCompleted SessionState = "COMPLETED"
	SessionOverdue   SessionState = "OVERDUE"
)

// SessionView is the derived, never persisted, state of a slot for one day.
type SessionView struct {
	ScheduleID  int64        `json:"jadwal_id"`
	Date        Date         `json:"date"`
	Code        string       `json:"code"`
	ClassID     int64        `json:"kelas_id"`
	ClassName   string       `json:"class_name"`
	SubjectName string       `json:"subject_name"`
	TimeRange   string       `json:"time_range,omitempty"`
	PeriodLabel string       `json:"period_label"`
	State       SessionState `json:"state"`
	Captured    bool         `json:"captured"`
	Completed   bool         `json:"completed"`

	startMinutes int
}

// StartMinutes exposes the sort key; sessions without a start sort first.
func (v SessionView) StartMinutes() int {
	return v.startMinutes
}

// WithStart records the start minute used for ordering.
func (v SessionView) WithStart(minutes int) SessionView {
	v.startMinutes = minutes
	return v
}

// SessionDetail adds the notes shown on the session screen.
type SessionDetail struct {
	SessionView
	AttendanceID *int64 `json:"absen_id,omitempty"`
	Note         string `json:"note"`
	PreviousNote string `json:"previous_note"`
}
