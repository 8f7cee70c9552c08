// profile_repository.go implements ProfileRepository for account rows,
// including the batched lookup that audit enrichment uses.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/class-scheduler/scheduler-backend/internal/db/models"
)

// profileSortColumns maps sort keys from the users listing to columns.
var profileSortColumns = map[string]string{
	"recent":  "created_at DESC",
	"oldest":  "created_at ASC",
	"name":    "full_name ASC NULLS LAST",
	"email":   "email ASC NULLS LAST",
	"role":    "role ASC",
	"status":  "status ASC",
	"student": "student_id ASC NULLS LAST",
}

// ProfileQuery describes a users listing request.
type ProfileQuery struct {
	Search string
	Role   string
	Status string
	Sort   string
	Limit  int
	Offset int
}

// ProfileRepository handles profile database operations.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByIDs fetches profiles for a set of ids in one round trip. Unknown ids
// are silently absent from the result.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Profile
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ProfileDisplay is the per-user payload audit enrichment attaches to
// entries: a display name plus the avatar URL when one is set.
type ProfileDisplay struct {
	Name   string
	Avatar string
}

// DisplayByID returns the display name and avatar per profile id, skipping
// profiles with neither a name nor an email.
func (r *ProfileRepository) DisplayByID(ctx context.Context, ids []string) (map[string]ProfileDisplay, error) {
	profiles, err := r.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ProfileDisplay, len(profiles))
	for i := range profiles {
		name := strings.TrimSpace(profiles[i].Label())
		if name == "" {
			continue
		}
		d := ProfileDisplay{Name: name}
		if profiles[i].AvatarURL != nil {
			d.Avatar = *profiles[i].AvatarURL
		}
		out[profiles[i].ID] = d
	}
	return out, nil
}

// Get returns one profile by id, or nil when it does not exist.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var row models.Profile
	err := r.db.GetContext(ctx, &row, `SELECT * FROM profiles WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByEmail returns one profile by email, or nil when it does not exist.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var row models.Profile
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM profiles WHERE LOWER(email) = LOWER($1)`, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns profiles matching the query plus the total match count.
func (r *ProfileRepository) List(ctx context.Context, q ProfileQuery) ([]models.Profile, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Role != "" {
		conds = append(conds, "role = "+arg(q.Role))
	}
	if q.Status != "" {
		conds = append(conds, "status = "+arg(q.Status))
	}
	if q.Search != "" {
		escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(q.Search)
		p := arg("%" + escaped + "%")
		conds = append(conds, "(full_name ILIKE "+p+" OR email ILIKE "+p+" OR student_id ILIKE "+p+")")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM profiles"+where, args...); err != nil {
		return nil, 0, err
	}

	orderBy, ok := profileSortColumns[strings.ToLower(q.Sort)]
	if !ok {
		orderBy = profileSortColumns["recent"]
	}

	query := "SELECT * FROM profiles" + where + " ORDER BY " + orderBy + ", id ASC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	var rows []models.Profile
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Create inserts a profile and returns the stored row.
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	var row models.Profile
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO profiles (email, full_name, student_id, avatar_url, role, status, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		p.Email, p.FullName, p.StudentID, p.AvatarURL, p.Role, p.Status, p.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ProfileUpdate carries the fields of a partial profile update.
type ProfileUpdate struct {
	Email     **string
	FullName  **string
	StudentID **string
	AvatarURL **string
	Role      *string
	Status    *string
}

// Update applies a partial update and returns the stored row, or nil when
// the profile does not exist.
func (r *ProfileRepository) Update(ctx context.Context, id string, u ProfileUpdate) (*models.Profile, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Email != nil {
		set("email", *u.Email)
	}
	if u.FullName != nil {
		set("full_name", *u.FullName)
	}
	if u.StudentID != nil {
		set("student_id", *u.StudentID)
	}
	if u.AvatarURL != nil {
		set("avatar_url", *u.AvatarURL)
	}
	if u.Role != nil {
		set("role", *u.Role)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d RETURNING *",
		strings.Join(sets, ", "), len(args))

	var row models.Profile
	err := r.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes one profile, reporting whether a row existed.
func (r *ProfileRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// TouchLastSignIn stamps a successful login.
func (r *ProfileRepository) TouchLastSignIn(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_sign_in_at = $1 WHERE id = $2`, at, id)
	return err
}
