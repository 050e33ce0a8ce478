package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"caremind-backend/internal/directory"
	"caremind-backend/internal/middleware"
	"caremind-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func caregiverRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, middleware.UserClaims{
		UserID: "caregiver-1",
		Email:  "rina@example.com",
		Role:   "caregiver",
	})
	return req.WithContext(ctx)
}

func TestGetQuizPeopleAccess(t *testing.T) {
	t.Run("link check failure is a server error, not forbidden", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM caregiver_patients`).
			WithArgs("caregiver-1", "patient-1").
			WillReturnError(errors.New("connection reset"))

		rr := httptest.NewRecorder()
		GetQuizPeople(db, directory.NewPostgresDirectory(db))(rr, caregiverRequest("/api/quiz/people?patient_id=patient-1"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unlinked caregiver is forbidden", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM caregiver_patients`).
			WithArgs("caregiver-1", "patient-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		rr := httptest.NewRecorder()
		GetQuizPeople(db, directory.NewPostgresDirectory(db))(rr, caregiverRequest("/api/quiz/people?patient_id=patient-1"))

		assert.Equal(t, http.StatusForbidden, rr.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "Not assigned to this patient", body["error"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("linked caregiver gets the list", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM caregiver_patients`).
			WithArgs("caregiver-1", "patient-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM quiz_people`).
			WithArgs("patient-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "name", "relation", "photo_url", "created_at"}).
				AddRow("person-1", "patient-1", "Ana", "daughter", "https://photos.example/ana.jpg", int64(1756700000)))

		rr := httptest.NewRecorder()
		GetQuizPeople(db, directory.NewPostgresDirectory(db))(rr, caregiverRequest("/api/quiz/people?patient_id=patient-1"))

		require.Equal(t, http.StatusOK, rr.Code)

		var people []models.QuizPerson
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &people))
		require.Len(t, people, 1)
		assert.Equal(t, "Ana", people[0].Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
