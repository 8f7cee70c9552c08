package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/class-scheduler/scheduler-backend/internal/db/repositories"
)

var semesterCols = []string{
	"id", "code", "name", "academic_year", "term",
	"start_date", "end_date", "is_active", "created_at", "updated_at",
}

func semesterRow(id int64, code string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(semesterCols).
		AddRow(id, code, "Fall Semester", "2026/2027", 1, now, now.AddDate(0, 4, 0), active, now, now)
}

func semesterTestRouter(f *fixture) *gin.Engine {
	h := NewSemesterHandlers(f.guard, repositories.NewSemesterRepository(f.db))
	r := gin.New()
	r.GET("/api/semesters", h.ListHandler())
	r.POST("/api/semesters", h.CreateHandler())
	r.PUT("/api/semesters/:id", h.UpdateHandler())
	r.DELETE("/api/semesters/:id", h.DeleteHandler())
	return r
}

func TestCreateActiveSemesterDeactivatesOthers(t *testing.T) {
	f := newFixture(t)
	r := semesterTestRouter(f)

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE semesters SET is_active = FALSE WHERE is_active`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery(`INSERT INTO semesters`).
		WithArgs("2026-FALL", "Fall Semester", "2026/2027", 1, nil, nil, true).
		WillReturnRows(semesterRow(3, "2026-FALL", true))
	f.mock.ExpectCommit()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/semesters",
		`{"code":"2026-FALL","name":"Fall Semester","academic_year":"2026/2027","term":1,"is_active":true}`))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, f.auditor.records, 1)
	assert.Equal(t, "semesters", f.auditor.records[0].table)
	assert.Equal(t, "insert", f.auditor.records[0].action)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateInactiveSemesterSkipsDeactivation(t *testing.T) {
	f := newFixture(t)
	r := semesterTestRouter(f)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO semesters`).
		WillReturnRows(semesterRow(4, "2027-SPRING", false))
	f.mock.ExpectCommit()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/semesters", `{"code":"2027-SPRING","name":"Spring Semester"}`))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateSemesterValidation(t *testing.T) {
	f := newFixture(t)
	r := semesterTestRouter(f)

	cases := []struct {
		name string
		body string
		path string
	}{
		{"missing code", `{"name":"Fall Semester"}`, "code"},
		{"missing name", `{"code":"2026-FALL"}`, "name"},
		{"term out of range", `{"code":"2026-FALL","name":"Fall","term":4}`, "term"},
		{"bad start date", `{"code":"2026-FALL","name":"Fall","start_date":"yesterday"}`, "start_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON("/api/semesters", tc.body))
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tc.path)
		})
	}
}

func TestUpdateSemesterMissing(t *testing.T) {
	f := newFixture(t)
	r := semesterTestRouter(f)

	f.mock.ExpectQuery(`SELECT \* FROM semesters WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(semesterCols))

	req := httptest.NewRequest(http.MethodPut, "/api/semesters/42",
		jsonBody(`{"code":"2026-FALL","name":"Fall Semester"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, withOrigin(req))

	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "semester_not_found")
}

func TestListSemestersActiveOnly(t *testing.T) {
	f := newFixture(t)
	r := semesterTestRouter(f)

	f.mock.ExpectQuery(`SELECT \* FROM semesters WHERE is_active ORDER BY is_active DESC`).
		WillReturnRows(semesterRow(3, "2026-FALL", true))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/semesters?active=true", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDeleteSemester(t *testing.T) {
	f := newFixture(t)
	r := semesterTestRouter(f)

	f.mock.ExpectQuery(`SELECT \* FROM semesters WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(semesterRow(3, "2026-FALL", false))
	f.mock.ExpectExec(`DELETE FROM semesters WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withOrigin(httptest.NewRequest(http.MethodDelete, "/api/semesters/3", nil)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.auditor.records, 1)
	assert.Equal(t, "delete", f.auditor.records[0].action)
	assert.NotNil(t, f.auditor.records[0].opts.Before)
}
