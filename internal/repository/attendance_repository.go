package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-absensi-api/internal/models"
)

// AttendanceRepository persists captures (absen), one per slot and date.
type AttendanceRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db, now: time.Now}
}

const attendanceColumns = `id, jadwal_id, tanggal, statuses, status_jadwal, keterangan, updated_at`

// FindBySlotDate returns the capture of a slot on a date.
func (r *AttendanceRepository) FindBySlotDate(ctx context.Context, scheduleID int64, date models.Date) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	query := `SELECT ` + attendanceColumns + ` FROM absen WHERE jadwal_id = $1 AND tanggal = $2`
	if err := r.db.GetContext(ctx, &record, query, scheduleID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID returns a capture by id.
func (r *AttendanceRepository) FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	query := `SELECT ` + attendanceColumns + ` FROM absen WHERE id = $1`
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert writes the statuses of (jadwal_id, tanggal), replacing any earlier
// capture of the same pair. The completed flag and note are left untouched.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	const query = `
INSERT INTO absen (jadwal_id, tanggal, statuses, status_jadwal, updated_at)
VALUES ($1, $2, $3, FALSE, $4)
ON CONFLICT (jadwal_id, tanggal) DO UPDATE
SET statuses = EXCLUDED.statuses,
    updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns

	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ScheduleID,
		record.Date,
		record.Statuses.Normalize(),
		r.now().UTC(),
	); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// MarkCompleted flags a capture as completed. A nil note keeps the stored one.
func (r *AttendanceRepository) MarkCompleted(ctx context.Context, id int64, note *string) (*models.AttendanceRecord, error) {
	query := `UPDATE absen SET status_jadwal = TRUE, keterangan = COALESCE($2, keterangan), updated_at = $3 WHERE id = $1 RETURNING ` + attendanceColumns
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, id, note, r.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("complete attendance: %w", err)
	}
	return &stored, nil
}

// ListBySlots returns captures of the given slots, optionally bounded by an
// inclusive date range, ordered by date then id.
func (r *AttendanceRepository) ListBySlots(ctx context.Context, scheduleIDs []int64, from, to *models.Date) ([]models.AttendanceRecord, error) {
	if len(scheduleIDs) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	query := `SELECT ` + attendanceColumns + ` FROM absen WHERE jadwal_id = ANY($1)`
	args := []interface{}{pq.Array(scheduleIDs)}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND tanggal >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND tanggal <= $%d", len(args))
	}
	query += " ORDER BY tanggal ASC, id ASC"

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// PreviousNote returns the most recent non-empty note of a slot recorded
// before date, or "" when there is none.
func (r *AttendanceRepository) PreviousNote(ctx context.Context, scheduleID int64, before models.Date) (string, error) {
	const query = `SELECT keterangan FROM absen
WHERE jadwal_id = $1 AND tanggal < $2 AND keterangan IS NOT NULL AND TRIM(keterangan) <> ''
ORDER BY tanggal DESC LIMIT 1`
	var note string
	if err := r.db.GetContext(ctx, &note, query, scheduleID, before); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find previous note: %w", err)
	}
	return note, nil
}
