// section_repository.go implements SectionRepository, including the class
// count aggregation the sections listing shows.
package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
)

// SectionRepository handles section database operations.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections, optionally restricted to one semester, each with
// its non-archived class count.
func (r *SectionRepository) List(ctx context.Context, semesterID *int64) ([]models.Section, error) {
	query := `
		SELECT s.id, s.code, s.section_number, s.semester_id, s.created_at, s.updated_at,
		       COUNT(c.id) FILTER (WHERE c.archived_at IS NULL) AS class_count
		FROM sections s
		LEFT JOIN classes c ON c.section_id = s.id`
	var args []any
	if semesterID != nil {
		query += ` WHERE s.semester_id = $1`
		args = append(args, *semesterID)
	}
	query += ` GROUP BY s.id ORDER BY s.code ASC NULLS LAST, s.id ASC`

	var rows []models.Section
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns one section by id, or nil when it does not exist.
func (r *SectionRepository) Get(ctx context.Context, id int64) (*models.Section, error) {
	var row models.Section
	err := r.db.GetContext(ctx, &row, `
		SELECT s.id, s.code, s.section_number, s.semester_id, s.created_at, s.updated_at,
		       COUNT(c.id) FILTER (WHERE c.archived_at IS NULL) AS class_count
		FROM sections s
		LEFT JOIN classes c ON c.section_id = s.id
		WHERE s.id = $1
		GROUP BY s.id`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a section and returns the stored row.
func (r *SectionRepository) Create(ctx context.Context, s *models.Section) (*models.Section, error) {
	var row models.Section
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO sections (code, section_number, semester_id)
		VALUES ($1, $2, $3)
		RETURNING id, code, section_number, semester_id, created_at, updated_at, 0 AS class_count`,
		s.Code, s.SectionNumber, s.SemesterID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Update replaces the mutable columns and returns the stored row, or nil
// when the section does not exist.
func (r *SectionRepository) Update(ctx context.Context, id int64, s *models.Section) (*models.Section, error) {
	var row models.Section
	err := r.db.GetContext(ctx, &row, `
		UPDATE sections SET code = $1, section_number = $2, semester_id = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING id, code, section_number, semester_id, created_at, updated_at, 0 AS class_count`,
		s.Code, s.SectionNumber, s.SemesterID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes one section, reporting whether a row existed. Classes in
// the section keep their rows with section_id cleared.
func (r *SectionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
