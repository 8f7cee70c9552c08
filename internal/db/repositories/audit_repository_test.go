package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	auditColsPreferred = []string{"id", "at", "created_at", "user_id", "table_name", "action", "row_id", "details"}
	auditColsFallback  = []string{"id", "created_at", "user_id", "table_name", "action", "row_id", "details"}
)

func newAuditRepo(t *testing.T) (sqlmock.Sqlmock, *AuditRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, NewAuditRepository(sqlx.NewDb(db, "sqlmock"))
}

func TestListDefaultsToRecentSortAndCap(t *testing.T) {
	mock, repo := newAuditRepo(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, at, created_at, .+ FROM audit_log ORDER BY at DESC NULLS LAST LIMIT \$1`).
		WithArgs(MaxAuditPageSize).
		WillReturnRows(sqlmock.NewRows(auditColsPreferred).
			AddRow(2, now, now, "u1", "classes", "UPDATE", "7", []byte(`{"note":"room change"}`)).
			AddRow(1, now.Add(-time.Minute), now.Add(-time.Minute), nil, "classes", "INSERT", "7", nil))

	rows, err := repo.List(context.Background(), AuditQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ID != 2 || rows[0].IsSystem() {
		t.Errorf("row 0 = %+v, want id 2 with user attribution", rows[0])
	}
	if rows[0].Details == nil || string(*rows[0].Details) != `{"note":"room change"}` {
		t.Errorf("row 0 details = %v", rows[0].Details)
	}
	if !rows[1].IsSystem() {
		t.Error("row 1 should be system attributed")
	}
	if rows[1].Details != nil {
		t.Errorf("row 1 details = %v, want nil for a NULL column", rows[1].Details)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListAppliesFiltersInOrder(t *testing.T) {
	mock, repo := newAuditRepo(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	rowID := "12"

	mock.ExpectQuery(`FROM audit_log WHERE table_name = \$1 AND user_id = \$2 AND action = \$3 AND row_id = \$4 AND at >= \$5 AND at <= \$6 ORDER BY`).
		WithArgs("classes", "u1", "UPDATE", "12", start, end, 50).
		WillReturnRows(sqlmock.NewRows(auditColsPreferred))

	_, err := repo.List(context.Background(), AuditQuery{
		Table:  "classes",
		UserID: "u1",
		Action: "UPDATE",
		RowID:  &rowID,
		Start:  &start,
		End:    &end,
		Limit:  50,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListIgnoresAllTableFilter(t *testing.T) {
	mock, repo := newAuditRepo(t)

	mock.ExpectQuery(`FROM audit_log ORDER BY`).
		WithArgs(MaxAuditPageSize).
		WillReturnRows(sqlmock.NewRows(auditColsPreferred))

	if _, err := repo.List(context.Background(), AuditQuery{Table: "all"}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListClampsOversizedLimit(t *testing.T) {
	mock, repo := newAuditRepo(t)

	mock.ExpectQuery(`FROM audit_log ORDER BY`).
		WithArgs(MaxAuditPageSize).
		WillReturnRows(sqlmock.NewRows(auditColsPreferred))

	if _, err := repo.List(context.Background(), AuditQuery{Limit: 5000}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListSortOrders(t *testing.T) {
	cases := []struct {
		sort  string
		order string
	}{
		{"recent", `ORDER BY at DESC NULLS LAST`},
		{"oldest", `ORDER BY at ASC NULLS FIRST`},
		{"user", `ORDER BY user_id ASC NULLS FIRST, at DESC NULLS LAST`},
		{"table", `ORDER BY table_name ASC NULLS FIRST, at DESC NULLS LAST`},
		{"bogus", `ORDER BY at DESC NULLS LAST`},
	}

	for _, tc := range cases {
		t.Run(tc.sort, func(t *testing.T) {
			mock, repo := newAuditRepo(t)

			mock.ExpectQuery(tc.order).
				WillReturnRows(sqlmock.NewRows(auditColsPreferred))

			if _, err := repo.List(context.Background(), AuditQuery{Sort: tc.sort}); err != nil {
				t.Fatalf("List: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestListCursorComparators(t *testing.T) {
	cursor := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		sort      string
		direction string
		cond      string
	}{
		{"recent next walks older", "recent", "next", `at < \$1`},
		{"recent prev walks newer", "recent", "prev", `at > \$1`},
		{"oldest next walks newer", "oldest", "next", `at > \$1`},
		{"oldest prev walks older", "oldest", "prev", `at < \$1`},
		{"user sort pages on timestamp", "user", "next", `at < \$1`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock, repo := newAuditRepo(t)

			mock.ExpectQuery(`FROM audit_log WHERE `+tc.cond).
				WithArgs(cursor, MaxAuditPageSize).
				WillReturnRows(sqlmock.NewRows(auditColsPreferred))

			_, err := repo.List(context.Background(), AuditQuery{
				Sort:            tc.sort,
				Cursor:          &cursor,
				CursorDirection: tc.direction,
			})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestListFallsBackWhenAtColumnMissing(t *testing.T) {
	mock, repo := newAuditRepo(t)

	created := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, at, created_at,`).
		WillReturnError(&pq.Error{Code: pqUndefinedColumn})
	mock.ExpectQuery(`SELECT id, created_at, .+ ORDER BY created_at DESC NULLS LAST`).
		WillReturnRows(sqlmock.NewRows(auditColsFallback).
			AddRow(1, created, "u1", "classes", "UPDATE", "7", nil))

	rows, err := repo.List(context.Background(), AuditQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].At == nil || !rows[0].At.Equal(created) {
		t.Errorf("At = %v, want backfilled created_at %v", rows[0].At, created)
	}

	// The missing column is remembered: the next page skips the preferred
	// attempt entirely.
	mock.ExpectQuery(`SELECT id, created_at,`).
		WillReturnRows(sqlmock.NewRows(auditColsFallback))
	if _, err := repo.List(context.Background(), AuditQuery{}); err != nil {
		t.Fatalf("List after fallback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListSurfacesOtherErrors(t *testing.T) {
	mock, repo := newAuditRepo(t)

	mock.ExpectQuery(`FROM audit_log`).
		WillReturnError(errors.New("connection refused"))

	if _, err := repo.List(context.Background(), AuditQuery{}); err == nil {
		t.Fatal("expected error to surface")
	}
}

func TestReset(t *testing.T) {
	mock, repo := newAuditRepo(t)

	mock.ExpectExec(`DELETE FROM audit_log WHERE id > 0`).
		WillReturnResult(sqlmock.NewResult(0, 42))

	if err := repo.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
