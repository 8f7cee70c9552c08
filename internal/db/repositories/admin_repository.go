// admin_repository.go implements AdminRepository, the membership check that
// backs dashboard authorization.
package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// AdminRepository handles admins table operations.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// ExistsAdmin reports whether the user is an admin.
func (r *AdminRepository) ExistsAdmin(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`, userID)
	return exists, err
}

// ListAdminIDs returns every admin user id.
func (r *AdminRepository) ListAdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM admins ORDER BY created_at ASC`)
	return ids, err
}

// Add grants admin membership. Adding an existing admin is a no-op.
func (r *AdminRepository) Add(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// Remove revokes admin membership, reporting whether it existed.
func (r *AdminRepository) Remove(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
