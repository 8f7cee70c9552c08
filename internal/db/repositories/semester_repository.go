// semester_repository.go implements SemesterRepository. Activation is
// exclusive: marking a semester active deactivates the others in the same
// transaction.
package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
)

// SemesterRepository handles semester database operations.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository creates a new SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// List returns semesters, active first, then by start date descending.
func (r *SemesterRepository) List(ctx context.Context, activeOnly bool) ([]models.Semester, error) {
	query := `SELECT * FROM semesters`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY is_active DESC, start_date DESC NULLS LAST, created_at DESC`

	var rows []models.Semester
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns one semester by id, or nil when it does not exist.
func (r *SemesterRepository) Get(ctx context.Context, id int64) (*models.Semester, error) {
	var row models.Semester
	err := r.db.GetContext(ctx, &row, `SELECT * FROM semesters WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a semester and returns the stored row. When the new
// semester is active, every other semester is deactivated first.
func (r *SemesterRepository) Create(ctx context.Context, s *models.Semester) (*models.Semester, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if s.IsActive {
		if _, err := tx.ExecContext(ctx, `UPDATE semesters SET is_active = FALSE WHERE is_active`); err != nil {
			return nil, err
		}
	}

	var row models.Semester
	err = tx.GetContext(ctx, &row, `
		INSERT INTO semesters (code, name, academic_year, term, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		s.Code, s.Name, s.AcademicYear, s.Term, s.StartDate, s.EndDate, s.IsActive)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &row, nil
}

// Update replaces the mutable columns and returns the stored row, or nil
// when the semester does not exist. Activation stays exclusive.
func (r *SemesterRepository) Update(ctx context.Context, id int64, s *models.Semester) (*models.Semester, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if s.IsActive {
		if _, err := tx.ExecContext(ctx,
			`UPDATE semesters SET is_active = FALSE WHERE is_active AND id <> $1`, id); err != nil {
			return nil, err
		}
	}

	var row models.Semester
	err = tx.GetContext(ctx, &row, `
		UPDATE semesters SET code = $1, name = $2, academic_year = $3, term = $4,
			start_date = $5, end_date = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING *`,
		s.Code, s.Name, s.AcademicYear, s.Term, s.StartDate, s.EndDate, s.IsActive, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes one semester, reporting whether a row existed. Sections
// keep their rows with semester_id cleared.
func (r *SemesterRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM semesters WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
