package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// StatusKey is one of the four fixed attendance categories.
type StatusKey string

const (
	StatusPresent StatusKey = "hadir"
	StatusSick    StatusKey = "sakit"
	StatusExcused StatusKey = "izin"
	StatusAbsent  StatusKey = "alfa"
)

// StatusKeys lists the categories in storage order.
var StatusKeys = []StatusKey{StatusPresent, StatusSick, StatusExcused, StatusAbsent}

// Valid reports whether k is one of the four categories.
func (k StatusKey) Valid() bool {
	switch k {
	case StatusPresent, StatusSick, StatusExcused, StatusAbsent:
		return true
	}
	return false
}

// Letter is the single-letter mark used on capture screens and reports.
func (k StatusKey) Letter() string {
	switch k {
	case StatusPresent:
		return "H"
	case StatusSick:
		return "S"
	case StatusExcused:
		return "I"
	case StatusAbsent:
		return "A"
	}
	return ""
}

// Priority orders categories when one cell must show a single status:
// absent > sick > excused > present.
func (k StatusKey) Priority() int {
	switch k {
	case StatusAbsent:
		return 4
	case StatusSick:
		return 3
	case StatusExcused:
		return 2
	case StatusPresent:
		return 1
	}
	return 0
}

// StatusFromMark maps a capture mark to its category. Blank marks default to
// present; full category names are accepted as well as letters.
func StatusFromMark(mark string) (StatusKey, bool) {
	switch strings.ToUpper(strings.TrimSpace(mark)) {
	case "", "H", "HADIR":
		return StatusPresent, true
	case "S", "SAKIT":
		return StatusSick, true
	case "I", "IZIN":
		return StatusExcused, true
	case "A", "ALFA":
		return StatusAbsent, true
	}
	return "", false
}

// AttendanceStatuses groups student ids by category. A normalised value always
// holds all four keys, each a non-nil sorted slice.
type AttendanceStatuses map[StatusKey][]int64

// EmptyStatuses returns a normalised value with no marks.
func EmptyStatuses() AttendanceStatuses {
	s := make(AttendanceStatuses, len(StatusKeys))
	for _, key := range StatusKeys {
		s[key] = []int64{}
	}
	return s
}

// Normalize returns a copy holding exactly the four keys with sorted, de-duplicated ids.
func (s AttendanceStatuses) Normalize() AttendanceStatuses {
	out := EmptyStatuses()
	for _, key := range StatusKeys {
		ids := append([]int64(nil), s[key]...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		dedup := ids[:0]
		for i, id := range ids {
			if i > 0 && ids[i-1] == id {
				continue
			}
			dedup = append(dedup, id)
		}
		out[key] = append(out[key], dedup...)
	}
	return out
}

// StatusOf resolves the single status of a student in this record using
// Priority. ok is false when the student is not marked at all.
func (s AttendanceStatuses) StatusOf(studentID int64) (StatusKey, bool) {
	var best StatusKey
	for _, key := range StatusKeys {
		for _, id := range s[key] {
			if id == studentID && key.Priority() > best.Priority() {
				best = key
				break
			}
		}
	}
	return best, best != ""
}

// MarshalJSON always emits the four keys.
func (s AttendanceStatuses) MarshalJSON() ([]byte, error) {
	norm := s.Normalize()
	out := make(map[string][]int64, len(norm))
	for key, ids := range norm {
		out[string(key)] = ids
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes leniently, see DecodeStatuses.
func (s *AttendanceStatuses) UnmarshalJSON(b []byte) error {
	decoded, err := DecodeStatuses(b)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// Value implements driver.Valuer for the jsonb column.
func (s AttendanceStatuses) Value() (driver.Value, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Unreadable payloads become an empty value so one
// bad legacy row cannot break a whole report.
func (s *AttendanceStatuses) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*s = EmptyStatuses()
		return nil
	}
	decoded, err := DecodeStatuses(raw)
	if err != nil {
		decoded = EmptyStatuses()
	}
	*s = decoded
	return nil
}

// DecodeStatuses parses a stored statuses payload. It accepts the canonical
// object form and the legacy form where the object was written as a JSON string.
// Unknown keys are dropped; ids may be numbers or numeric strings, anything else
// in a list is skipped. Blank and null payloads decode to no marks.
func DecodeStatuses(raw []byte) (AttendanceStatuses, error) {
	return decodeStatuses(raw, 0)
}

func decodeStatuses(raw []byte, depth int) (AttendanceStatuses, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EmptyStatuses(), nil
	}

	if raw[0] == '"' {
		if depth > 0 {
			return nil, fmt.Errorf("statuses nested too deeply")
		}
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode statuses string: %w", err)
		}
		return decodeStatuses([]byte(inner), depth+1)
	}

	var groups map[string]json.RawMessage
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("decode statuses: %w", err)
	}

	out := EmptyStatuses()
	for _, key := range StatusKeys {
		payload, ok := groups[string(key)]
		if !ok {
			continue
		}
		var items []interface{}
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			continue
		}
		for _, item := range items {
			if id, ok := studentIDFrom(item); ok {
				out[key] = append(out[key], id)
			}
		}
	}
	return out.Normalize(), nil
}

func studentIDFrom(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if id, err := t.Int64(); err == nil {
			return id, true
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return id, err == nil
	}
	return 0, false
}

// AttendanceRecord is one capture (absen) for a slot on a date.
type AttendanceRecord struct {
	ID         int64              `db:"id" json:"id"`
	ScheduleID int64              `db:"jadwal_id" json:"jadwal_id"`
	Date       Date               `db:"tanggal" json:"tanggal"`
	Statuses   AttendanceStatuses `db:"statuses" json:"statuses"`
	Completed  bool               `db:"status_jadwal" json:"completed"`
	Note       *string            `db:"keterangan" json:"note,omitempty"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

// StatusCounts accumulates marks per category.
type StatusCounts struct {
	Present int `json:"hadir"`
	Sick    int `json:"sakit"`
	Excused int `json:"izin"`
	Absent  int `json:"alfa"`
}

// Inc adds one mark for key.
func (c *StatusCounts) Inc(key StatusKey) {
	switch key {
	case StatusPresent:
		c.Present++
	case StatusSick:
		c.Sick++
	case StatusExcused:
		c.Excused++
	case StatusAbsent:
		c.Absent++
	}
}

// Add returns the pointwise sum.
func (c StatusCounts) Add(other StatusCounts) StatusCounts {
	return StatusCounts{
		Present: c.Present + other.Present,
		Sick:    c.Sick + other.Sick,
		Excused: c.Excused + other.Excused,
		Absent:  c.Absent + other.Absent,
	}
}

// Total is the number of marks counted.
func (c StatusCounts) Total() int {
	return c.Present + c.Sick + c.Excused + c.Absent
}

// StudentAttendanceSummary holds cumulative counts for one student.
type StudentAttendanceSummary struct {
	StudentID int64        `json:"student_id"`
	Name      string       `json:"name"`
	Counts    StatusCounts `json:"counts"`
}

// ClassAttendanceSummary is the per-class cumulative view.
type ClassAttendanceSummary struct {
	ClassID   int64                      `json:"class_id"`
	ClassName string                     `json:"class_name"`
	From      *Date                      `json:"from,omitempty"`
	To        *Date                      `json:"to,omitempty"`
	Records   int                        `json:"records"`
	Students  []StudentAttendanceSummary `json:"students"`
}

// AttendanceGridRow is one student line of the history grid. Cells align with
// AttendanceGrid.Dates and hold a status letter or "" when unmarked.
type AttendanceGridRow struct {
	StudentID int64        `json:"student_id"`
	Name      string       `json:"name"`
	Cells     []string     `json:"cells"`
	Counts    StatusCounts `json:"counts"`
}

// AttendanceGrid is the per-student × per-date history.
type AttendanceGrid struct {
	ClassID   int64               `json:"class_id"`
	ClassName string              `json:"class_name"`
	From      *Date               `json:"from,omitempty"`
	To        *Date               `json:"to,omitempty"`
	Dates     []Date              `json:"dates"`
	Rows      []AttendanceGridRow `json:"rows"`
}

// RecordStudentStatus is a student line of a single capture.
type RecordStudentStatus struct {
	StudentID int64     `json:"student_id"`
	Name      string    `json:"name"`
	Status    StatusKey `json:"status"`
}

// AttendanceRecordDetail is a capture with its students resolved.
type AttendanceRecordDetail struct {
	Record    AttendanceRecord      `json:"record"`
	ClassName string                `json:"class_name"`
	Students  []RecordStudentStatus `json:"students"`
}
