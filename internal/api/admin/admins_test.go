package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
)

const otherAdminID = "99999999-8888-7777-6666-555555555555"

func adminTestRouter(f *fixture, g *guard.Guard) *gin.Engine {
	if g == nil {
		g = f.guard
	}
	h := NewAdminMembershipHandlers(g,
		repositories.NewAdminRepository(f.db), repositories.NewProfileRepository(f.db))
	r := gin.New()
	r.GET("/api/admins", h.ListHandler())
	r.POST("/api/admins", h.AddHandler())
	r.DELETE("/api/admins/:id", h.RemoveHandler())
	return r
}

func TestAddAdminUnknownUser(t *testing.T) {
	f := newFixture(t)
	r := adminTestRouter(f, nil)

	f.mock.ExpectQuery(`SELECT \* FROM profiles WHERE id = \$1`).
		WithArgs(otherAdminID).
		WillReturnRows(sqlmock.NewRows(loginProfileCols))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/admins", `{"user_id":"`+otherAdminID+`"}`))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "user_not_found") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAddAdmin(t *testing.T) {
	f := newFixture(t)
	r := adminTestRouter(f, nil)

	f.mock.ExpectQuery(`SELECT \* FROM profiles WHERE id = \$1`).
		WithArgs(otherAdminID).
		WillReturnRows(loginProfileRow(otherAdminID, "other@example.edu", "active"))
	f.mock.ExpectExec(`INSERT INTO admins \(user_id\) VALUES \(\$1\) ON CONFLICT`).
		WithArgs(otherAdminID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/admins", `{"user_id":"`+otherAdminID+`"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(f.auditor.records) != 1 || f.auditor.records[0].table != "admins" {
		t.Errorf("audit records = %+v", f.auditor.records)
	}
}

func TestRemoveAdminRejectsSelf(t *testing.T) {
	f := newFixture(t)
	g := guard.New(guard.Deps{
		Identity:     stubIdentity{user: &guard.AdminUser{ID: selfUserID, Email: "admin@example.edu"}},
		Admins:       stubAdmins{ok: true},
		Counter:      stubCounter{},
		Auditor:      f.auditor,
		AuditEnabled: true,
	})
	r := adminTestRouter(f, g)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withOrigin(httptest.NewRequest(http.MethodDelete, "/api/admins/"+selfUserID, nil)))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "cannot_remove_self") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRemoveAdminMissing(t *testing.T) {
	f := newFixture(t)
	r := adminTestRouter(f, nil)

	f.mock.ExpectExec(`DELETE FROM admins WHERE user_id = \$1`).
		WithArgs(otherAdminID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withOrigin(httptest.NewRequest(http.MethodDelete, "/api/admins/"+otherAdminID, nil)))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestListAdmins(t *testing.T) {
	f := newFixture(t)
	r := adminTestRouter(f, nil)

	f.mock.ExpectQuery(`SELECT user_id FROM admins ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(otherAdminID))
	f.mock.ExpectQuery(`SELECT \* FROM profiles WHERE id = ANY\(\$1\)`).
		WillReturnRows(loginProfileRow(otherAdminID, "other@example.edu", "active"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admins", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "other@example.edu") {
		t.Errorf("body = %s", w.Body.String())
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
