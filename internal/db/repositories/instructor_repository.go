// instructor_repository.go implements InstructorRepository with name and
// recency sorts plus search over the directory fields.
package repositories

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
)

// instructorSortColumns maps sort keys to ORDER BY clauses.
var instructorSortColumns = map[string]string{
	"name":   "full_name ASC",
	"recent": "created_at DESC",
}

// InstructorQuery describes an instructor listing request.
type InstructorQuery struct {
	Search    string
	Sort      string
	Direction string
}

// InstructorRepository handles instructor database operations.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository creates a new InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructors matching the query.
func (r *InstructorRepository) List(ctx context.Context, q InstructorQuery) ([]models.Instructor, error) {
	query := `SELECT * FROM instructors`
	var args []any

	if q.Search != "" {
		escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(q.Search)
		args = append(args, "%"+escaped+"%")
		query += ` WHERE full_name ILIKE $1 OR email ILIKE $1 OR department ILIKE $1`
	}

	orderBy, ok := instructorSortColumns[strings.ToLower(q.Sort)]
	if !ok {
		orderBy = instructorSortColumns["name"]
	}
	// An explicit direction overrides the sort key's default.
	switch strings.ToLower(q.Direction) {
	case "asc":
		orderBy = strings.Replace(orderBy, " DESC", " ASC", 1)
	case "desc":
		orderBy = strings.Replace(orderBy, " ASC", " DESC", 1)
	}
	query += " ORDER BY " + orderBy + ", id ASC"

	var rows []models.Instructor
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns one instructor by id, or nil when it does not exist.
func (r *InstructorRepository) Get(ctx context.Context, id string) (*models.Instructor, error) {
	var row models.Instructor
	err := r.db.GetContext(ctx, &row, `SELECT * FROM instructors WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts an instructor and returns the stored row.
func (r *InstructorRepository) Create(ctx context.Context, in *models.Instructor) (*models.Instructor, error) {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	var row models.Instructor
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO instructors (id, full_name, email, title, department, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`,
		id, in.FullName, in.Email, in.Title, in.Department, in.AvatarURL)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Update replaces the mutable columns and returns the stored row, or nil
// when the instructor does not exist.
func (r *InstructorRepository) Update(ctx context.Context, id string, in *models.Instructor) (*models.Instructor, error) {
	var row models.Instructor
	err := r.db.GetContext(ctx, &row, `
		UPDATE instructors SET full_name = $1, email = $2, title = $3, department = $4,
			avatar_url = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING *`,
		in.FullName, in.Email, in.Title, in.Department, in.AvatarURL, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes one instructor, reporting whether a row existed. Classes
// linked to the instructor keep their rows with instructor_id cleared.
func (r *InstructorRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM instructors WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
