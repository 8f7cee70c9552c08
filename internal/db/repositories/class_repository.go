// class_repository.go implements ClassRepository, providing list queries with
// configurable sorting and search plus row-level CRUD for class meetings.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
)

type classSortConfig struct {
	column           string
	defaultAscending bool
	nullsFirst       bool
	then             []string
}

// classSortConfigs maps sort keys to ORDER BY shapes. The schedule sort
// chains day, start, and id so the timetable view reads top to bottom.
var classSortConfigs = map[string]classSortConfig{
	"id":         {column: "id", defaultAscending: true},
	"code":       {column: "code", defaultAscending: true},
	"title":      {column: "title", defaultAscending: true},
	"instructor": {column: "instructor", defaultAscending: true, nullsFirst: true},
	"room":       {column: "room", defaultAscending: true, nullsFirst: true},
	"start":      {column: "start_time", defaultAscending: true, nullsFirst: true},
	"end":        {column: "end_time", defaultAscending: true, nullsFirst: true},
	"units":      {column: "units", defaultAscending: false, nullsFirst: true},
	"day":        {column: "day", defaultAscending: true, nullsFirst: true},
	"section":    {column: "section_id", defaultAscending: true, nullsFirst: true},
	"schedule":   {column: "day", defaultAscending: true, then: []string{"start_time ASC NULLS LAST", "id ASC"}},
}

// classSearchColumns are matched case-insensitively by the search term.
var classSearchColumns = []string{"title", "code", "room"}

var controlChars = regexp.MustCompile(`[\x00-\x1f]`)

// SanitizeSearchTerm strips control characters and pattern metacharacters
// from a user-supplied search term, collapsing runs of whitespace. Returns
// the empty string when nothing searchable remains.
func SanitizeSearchTerm(term string) string {
	cleaned := controlChars.ReplaceAllString(term, "")
	cleaned = strings.NewReplacer(",", " ", "*", " ", "%", " ").Replace(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// ClassQuery describes a class list request.
type ClassQuery struct {
	// Search matches title, code, and room. Sanitize with
	// SanitizeSearchTerm before querying.
	Search string
	// Sort is a key from classSortConfigs; unknown keys fall back to id.
	Sort string
	// Direction overrides the sort key's default when "asc" or "desc".
	Direction string
	// SectionID filters to one section when non-nil.
	SectionID *int64
	// IncludeArchived keeps rows with archived_at set.
	IncludeArchived bool

	Limit  int
	Offset int
}

// ClassUpdate carries the fields of a partial update. Nil pointers leave the
// column untouched; the double pointers distinguish "set to null" from
// "leave alone" for nullable columns.
type ClassUpdate struct {
	Title        *string
	Code         *string
	SectionID    **int64
	Day          **string
	Start        **string
	End          **string
	Units        **int
	Room         **string
	Instructor   **string
	InstructorID **string
}

// ClassRepository handles class database operations.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching the query along with the total match count
// before limit and offset.
func (r *ClassRepository) List(ctx context.Context, q ClassQuery) ([]models.Class, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.IncludeArchived {
		conds = append(conds, "archived_at IS NULL")
	}
	if q.SectionID != nil {
		conds = append(conds, "section_id = "+arg(*q.SectionID))
	}
	if q.Search != "" {
		escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(q.Search)
		pattern := "%" + escaped + "%"
		p := arg(pattern)
		var ors []string
		for _, col := range classSearchColumns {
			ors = append(ors, col+" ILIKE "+p)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM classes"+where, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM classes" + where + " ORDER BY " + classOrderBy(q.Sort, q.Direction)
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	var rows []models.Class
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func classOrderBy(sort, direction string) string {
	cfg, ok := classSortConfigs[strings.ToLower(sort)]
	if !ok {
		cfg = classSortConfigs["id"]
	}

	ascending := cfg.defaultAscending
	switch strings.ToLower(direction) {
	case "asc":
		ascending = true
	case "desc":
		ascending = false
	}

	clause := cfg.column
	if ascending {
		clause += " ASC"
	} else {
		clause += " DESC"
	}
	if cfg.nullsFirst {
		clause += " NULLS FIRST"
	} else {
		clause += " NULLS LAST"
	}

	parts := append([]string{clause}, cfg.then...)
	// Stable tiebreak so pagination never reorders equal keys.
	if cfg.column != "id" && len(cfg.then) == 0 {
		parts = append(parts, "id ASC")
	}
	return strings.Join(parts, ", ")
}

// Get returns one class by id, or nil when it does not exist.
func (r *ClassRepository) Get(ctx context.Context, id int64) (*models.Class, error) {
	var row models.Class
	err := r.db.GetContext(ctx, &row, `SELECT * FROM classes WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a class and returns the stored row.
func (r *ClassRepository) Create(ctx context.Context, c *models.Class) (*models.Class, error) {
	var row models.Class
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO classes (title, code, section_id, day, start_time, end_time, units, room, instructor, instructor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *`,
		c.Title, c.Code, c.SectionID, c.Day, c.Start, c.End, c.Units, c.Room, c.Instructor, c.InstructorID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Update applies a partial update and returns the stored row, or nil when
// the class does not exist.
func (r *ClassRepository) Update(ctx context.Context, id int64, u ClassUpdate) (*models.Class, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Code != nil {
		set("code", *u.Code)
	}
	if u.SectionID != nil {
		set("section_id", *u.SectionID)
	}
	if u.Day != nil {
		set("day", *u.Day)
	}
	if u.Start != nil {
		set("start_time", *u.Start)
	}
	if u.End != nil {
		set("end_time", *u.End)
	}
	if u.Units != nil {
		set("units", *u.Units)
	}
	if u.Room != nil {
		set("room", *u.Room)
	}
	if u.Instructor != nil {
		set("instructor", *u.Instructor)
	}
	if u.InstructorID != nil {
		set("instructor_id", *u.InstructorID)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE classes SET %s WHERE id = $%d RETURNING *",
		strings.Join(sets, ", "), len(args))

	var row models.Class
	err := r.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes one class, reporting whether a row existed.
func (r *ClassRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteMany removes a batch of classes by id and returns how many existed.
func (r *ClassRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM classes WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
