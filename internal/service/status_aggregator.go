package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/sma-absensi-api/internal/models"
)

// CountStatuses adds up, per student id, how often each category appears across
// records. A student listed in two buckets of one record is counted in both; a
// student missing from a record contributes nothing for it.
func CountStatuses(records []models.AttendanceRecord) map[int64]models.StatusCounts {
	counts := make(map[int64]models.StatusCounts)
	for _, record := range records {
		for _, key := range models.StatusKeys {
			for _, id := range record.Statuses[key] {
				c := counts[id]
				c.Inc(key)
				counts[id] = c
			}
		}
	}
	return counts
}

// Accumulate returns cumulative counts for every roster student, in roster
// order, including students with no marks at all. Ids outside the roster are ignored.
func Accumulate(students []models.Student, records []models.AttendanceRecord) []models.StudentAttendanceSummary {
	counts := CountStatuses(records)
	out := make([]models.StudentAttendanceSummary, 0, len(students))
	for _, student := range students {
		out = append(out, models.StudentAttendanceSummary{
			StudentID: student.ID,
			Name:      student.Name,
			Counts:    counts[student.ID],
		})
	}
	return out
}

// BuildGrid lays records out as one row per roster student and one column per
// distinct date, ascending. Each cell shows a single letter: when a student has
// several marks on the same date (duplicate buckets or several sessions) the
// highest priority status wins. Row counts tally the cells.
func BuildGrid(students []models.Student, records []models.AttendanceRecord) ([]models.Date, []models.AttendanceGridRow) {
	type cellKey struct {
		student int64
		date    string
	}
	cells := make(map[cellKey]models.StatusKey)
	dateSet := make(map[string]models.Date)
	for _, record := range records {
		date := record.Date.String()
		dateSet[date] = record.Date
		for _, key := range models.StatusKeys {
			for _, id := range record.Statuses[key] {
				k := cellKey{student: id, date: date}
				if key.Priority() > cells[k].Priority() {
					cells[k] = key
				}
			}
		}
	}

	dates := make([]models.Date, 0, len(dateSet))
	for _, d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([]models.AttendanceGridRow, 0, len(students))
	for _, student := range students {
		row := models.AttendanceGridRow{
			StudentID: student.ID,
			Name:      student.Name,
			Cells:     make([]string, len(dates)),
		}
		for i, d := range dates {
			status, ok := cells[cellKey{student: student.ID, date: d.String()}]
			if !ok {
				continue
			}
			row.Cells[i] = status.Letter()
			row.Counts.Inc(status)
		}
		rows = append(rows, row)
	}
	return dates, rows
}

// RecordStudents lists every student marked in record with a single status,
// sorted by name case-insensitively then id. Unknown students are named "ID <n>".
func RecordStudents(record models.AttendanceRecord, students []models.Student) []models.RecordStudentStatus {
	names := make(map[int64]string, len(students))
	for _, student := range students {
		names[student.ID] = student.Name
	}

	seen := make(map[int64]struct{})
	var out []models.RecordStudentStatus
	for _, key := range models.StatusKeys {
		for _, id := range record.Statuses[key] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			status, _ := record.Statuses.StatusOf(id)
			name, ok := names[id]
			if !ok || strings.TrimSpace(name) == "" {
				name = fmt.Sprintf("ID %d", id)
			}
			out = append(out, models.RecordStudentStatus{StudentID: id, Name: name, Status: status})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

// recordStudentIDs collects every id marked in records.
func recordStudentIDs(records ...models.AttendanceRecord) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, record := range records {
		for _, key := range models.StatusKeys {
			for _, id := range record.Statuses[key] {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
