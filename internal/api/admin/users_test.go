package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
	"github.com/class-scheduler/scheduler-backend/internal/guard"
)

const selfUserID = "11111111-2222-3333-4444-555555555555"

func userTestRouter(f *fixture) *gin.Engine {
	h := NewUserHandlers(f.guard, repositories.NewProfileRepository(f.db))
	r := gin.New()
	r.GET("/api/users", h.ListHandler())
	r.POST("/api/users", h.CreateHandler())
	r.PATCH("/api/users/:id", h.UpdateHandler())
	r.DELETE("/api/users/:id", h.DeleteHandler())
	return r
}

func TestCreateUserDefaultsRoleAndStatus(t *testing.T) {
	f := newFixture(t)
	r := userTestRouter(f)

	rows := sqlmock.NewRows(loginProfileCols).
		AddRow("u9", "new@example.edu", nil, nil, nil, "student", "active", nil, nil, time.Now(), time.Now())
	f.mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs("new@example.edu", nil, nil, nil, "student", "active", nil).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/users", `{"email":"new@example.edu"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(f.auditor.records) != 1 || f.auditor.records[0].table != "profiles" {
		t.Errorf("audit records = %+v", f.auditor.records)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	f := newFixture(t)
	r := userTestRouter(f)

	rows := sqlmock.NewRows(loginProfileCols).
		AddRow("u9", "new@example.edu", nil, nil, nil, "instructor", "active", "hashed", nil, time.Now(), time.Now())
	f.mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs("new@example.edu", nil, nil, nil, "instructor", "active", sqlmock.AnyArg()).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/users",
		`{"email":"new@example.edu","role":"instructor","password":"longenoughpw"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "longenoughpw") {
		t.Error("response must not echo the password")
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	r := userTestRouter(f)

	cases := []struct {
		name string
		body string
		path string
	}{
		{"missing email", `{}`, "email"},
		{"bad email", `{"email":"not-an-address"}`, "email"},
		{"bad role", `{"email":"x@example.edu","role":"dean"}`, "role"},
		{"short password", `{"email":"x@example.edu","password":"short"}`, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON("/api/users", tc.body))
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.path) {
				t.Errorf("body %s does not name field %q", w.Body.String(), tc.path)
			}
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	r := userTestRouter(f)

	f.mock.ExpectQuery(`INSERT INTO profiles`).
		WillReturnError(&pq.Error{Code: "23505"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/users", `{"email":"dup@example.edu"}`))

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "duplicate_record") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	f := newFixture(t)
	// The self check compares against the resolved admin, so this guard
	// resolves to the same id the request targets.
	g := guard.New(guard.Deps{
		Identity:     stubIdentity{user: &guard.AdminUser{ID: selfUserID, Email: "admin@example.edu"}},
		Admins:       stubAdmins{ok: true},
		Counter:      stubCounter{},
		Auditor:      f.auditor,
		AuditEnabled: true,
	})
	h := NewUserHandlers(g, repositories.NewProfileRepository(f.db))
	r := gin.New()
	r.DELETE("/api/users/:id", h.DeleteHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withOrigin(httptest.NewRequest(http.MethodDelete, "/api/users/"+selfUserID, nil)))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "cannot_delete_self") {
		t.Errorf("body = %s", w.Body.String())
	}
	if len(f.auditor.records) != 0 {
		t.Errorf("rejected delete must not write an audit entry")
	}
}

func TestDeleteUserRejectsMalformedID(t *testing.T) {
	f := newFixture(t)
	r := userTestRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withOrigin(httptest.NewRequest(http.MethodDelete, "/api/users/42", nil)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}
