package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-absensi-api/internal/models"
)

// ScheduleRepository reads and writes the weekly timetable (jadwal).
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleDetailSelect = `SELECT j.id, j.hari_id, j.jam_id, j.kelas_id, j.mapel_id, j.guru_id, j.semester_id, j.jp,
       h.nama AS hari_nama, k.nama AS kelas_nama, m.nama AS mapel_nama, g.nama AS guru_nama,
       jm.id AS jam_ref, jm.nama AS jam_nama, jm.mulai AS jam_mulai, jm.selesai AS jam_selesai
FROM jadwal j
LEFT JOIN hari h ON h.id = j.hari_id
LEFT JOIN kelas k ON k.id = j.kelas_id
LEFT JOIN mapel m ON m.id = j.mapel_id
LEFT JOIN guru g ON g.id = j.guru_id
LEFT JOIN jam jm ON jm.id = j.jam_id`

// scheduleDetailRow is the flat shape of scheduleDetailSelect.
type scheduleDetailRow struct {
	models.ScheduleSlot
	DayName     sql.NullString `db:"hari_nama"`
	ClassName   sql.NullString `db:"kelas_nama"`
	SubjectName sql.NullString `db:"mapel_nama"`
	TeacherName sql.NullString `db:"guru_nama"`
	PeriodRef   sql.NullInt64  `db:"jam_ref"`
	PeriodName  sql.NullString `db:"jam_nama"`
	PeriodStart sql.NullString `db:"jam_mulai"`
	PeriodEnd   sql.NullString `db:"jam_selesai"`
}

func (r scheduleDetailRow) detail() models.ScheduleSlotDetail {
	d := models.ScheduleSlotDetail{
		ScheduleSlot: r.ScheduleSlot,
		DayName:      nullableString(r.DayName),
		ClassName:    nullableString(r.ClassName),
		SubjectName:  nullableString(r.SubjectName),
		TeacherName:  nullableString(r.TeacherName),
	}
	if r.PeriodRef.Valid {
		d.Period = &models.TimePeriod{
			ID:    r.PeriodRef.Int64,
			Name:  r.PeriodName.String,
			Start: nullableString(r.PeriodStart),
			End:   nullableString(r.PeriodEnd),
		}
	}
	return d
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// FindByID returns a slot with its relations joined.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int64) (*models.ScheduleSlotDetail, error) {
	var row scheduleDetailRow
	if err := r.db.GetContext(ctx, &row, scheduleDetailSelect+" WHERE j.id = $1", id); err != nil {
		return nil, err
	}
	detail := row.detail()
	return &detail, nil
}

// List returns slots matching filter ordered by day then start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlotDetail, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ClassID > 0 {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("j.kelas_id = $%d", len(args)))
	}
	if filter.TeacherID > 0 {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("j.guru_id = $%d", len(args)))
	}
	if filter.SemesterID > 0 {
		args = append(args, filter.SemesterID)
		conditions = append(conditions, fmt.Sprintf("j.semester_id = $%d", len(args)))
	}
	if len(filter.DayIDs) > 0 {
		args = append(args, pq.Array(filter.DayIDs))
		conditions = append(conditions, fmt.Sprintf("j.hari_id = ANY($%d)", len(args)))
	}

	query := scheduleDetailSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY j.hari_id ASC, jm.mulai ASC NULLS LAST, j.id ASC"

	var rows []scheduleDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	details := make([]models.ScheduleSlotDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.detail())
	}
	return details, nil
}

// ListIDsByClass returns the ids of every slot of a class.
func (r *ScheduleRepository) ListIDsByClass(ctx context.Context, classID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM jadwal WHERE kelas_id = $1 ORDER BY id`, classID); err != nil {
		return nil, fmt.Errorf("list schedule ids: %w", err)
	}
	return ids, nil
}

// FindTimePeriods loads the jam rows with the given ids.
func (r *ScheduleRepository) FindTimePeriods(ctx context.Context, ids []int64) ([]models.TimePeriod, error) {
	if len(ids) == 0 {
		return []models.TimePeriod{}, nil
	}
	var periods []models.TimePeriod
	const query = `SELECT id, nama, mulai, selesai FROM jam WHERE id = ANY($1)`
	if err := r.db.SelectContext(ctx, &periods, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find time periods: %w", err)
	}
	return periods, nil
}

// ListDays returns the school days in id order.
func (r *ScheduleRepository) ListDays(ctx context.Context) ([]models.Day, error) {
	var days []models.Day
	const query = `SELECT id, nama FROM hari WHERE id BETWEEN $1 AND $2 ORDER BY id`
	if err := r.db.SelectContext(ctx, &days, query, models.DayMonday, models.DaySaturday); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// BatchInsert stores all slots in a single statement and fills in their ids.
// Either every row is written or none is. Constraint violations are returned
// unwrapped enough for errors.As to find the *pq.Error.
func (r *ScheduleRepository) BatchInsert(ctx context.Context, slots []models.ScheduleSlot) error {
	if len(slots) == 0 {
		return nil
	}

	var (
		values []string
		args   []interface{}
	)
	for _, slot := range slots {
		base := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, slot.DayID, slot.PeriodID, slot.ClassID, slot.SubjectID, slot.TeacherID, slot.SemesterID, slot.PeriodUnits)
	}
	query := "INSERT INTO jadwal (hari_id, jam_id, kelas_id, mapel_id, guru_id, semester_id, jp) VALUES " +
		strings.Join(values, ", ") + " RETURNING id"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule batch: %w", err)
	}
	rollback := true
	defer func() {
		if rollback {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert schedules: %w", err)
	}
	i := 0
	for rows.Next() {
		if i < len(slots) {
			if err := rows.Scan(&slots[i].ID); err != nil {
				rows.Close()
				return fmt.Errorf("scan schedule id: %w", err)
			}
		}
		i++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("insert schedules: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule batch: %w", err)
	}
	rollback = false
	return nil
}
