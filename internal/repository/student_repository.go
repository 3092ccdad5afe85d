package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-absensi-api/internal/models"
)

// StudentRepository reads the student roster (siswa) and classes (kelas).
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns the students of a class ordered by name.
func (r *StudentRepository) ListByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	var students []models.Student
	const query = `SELECT id, nama, kelas_id FROM siswa WHERE kelas_id = $1 ORDER BY nama ASC, id ASC`
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

// ListByIDs returns the students with the given ids in no particular order.
func (r *StudentRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	var students []models.Student
	const query = `SELECT id, nama, kelas_id FROM siswa WHERE id = ANY($1)`
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list students by ids: %w", err)
	}
	return students, nil
}

// FindClass returns a class by id.
func (r *StudentRepository) FindClass(ctx context.Context, id int64) (*models.Class, error) {
	var class models.Class
	if err := r.db.GetContext(ctx, &class, `SELECT id, nama FROM kelas WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &class, nil
}
