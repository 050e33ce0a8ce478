package services

import (
	"context"
	"database/sql"
	"testing"

	"caremind-backend/internal/directory"
	"caremind-backend/internal/websocket"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrackingService(t *testing.T) (*TrackingService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewTrackingService(db, directory.NewPostgresDirectory(db), nil, websocket.NewHub()), mock
}

func expectZone(mock sqlmock.Sqlmock, lat, lng, radius float64) {
	mock.ExpectQuery(`SELECT center_latitude, center_longitude, radius_meters`).
		WithArgs("patient-1").
		WillReturnRows(sqlmock.NewRows([]string{"center_latitude", "center_longitude", "radius_meters"}).
			AddRow(lat, lng, radius))
}

// expectLockedUpsert covers the read-modify-write of the current-location
// row: the previous in_zone state must be read under FOR UPDATE inside the
// same transaction as the upsert, so concurrent reports for one patient
// cannot both observe the same previous state.
func expectLockedUpsert(mock sqlmock.Sqlmock, previous interface{}) {
	mock.ExpectBegin()
	query := mock.ExpectQuery(`(?s)SELECT in_zone FROM patient_current_location.*FOR UPDATE`).
		WithArgs("patient-1")
	if err, ok := previous.(error); ok {
		query.WillReturnError(err)
	} else {
		query.WillReturnRows(sqlmock.NewRows([]string{"in_zone"}).AddRow(previous))
	}
	mock.ExpectExec(`INSERT INTO patient_current_location`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func expectCaregivers(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT caregiver_id FROM caregiver_patients`).
		WithArgs("patient-1").
		WillReturnRows(sqlmock.NewRows([]string{"caregiver_id"}).AddRow("caregiver-1"))
}

func TestReport(t *testing.T) {
	ctx := context.Background()

	t.Run("leaving the zone records an exit event", func(t *testing.T) {
		svc, mock := newTrackingService(t)
		expectZone(mock, -6.2, 106.8, 250)
		expectLockedUpsert(mock, true)
		expectCaregivers(mock)
		mock.ExpectExec(`INSERT INTO zone_events`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		location, err := svc.Report(ctx, "patient-1", -6.3, 106.9, nil, 1756700000)
		require.NoError(t, err)
		require.NotNil(t, location.InZone)
		assert.False(t, *location.InZone)
		require.NotNil(t, location.DistanceMeters)
		assert.Greater(t, *location.DistanceMeters, 250.0)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("staying outside the zone records nothing", func(t *testing.T) {
		svc, mock := newTrackingService(t)
		expectZone(mock, -6.2, 106.8, 250)
		expectLockedUpsert(mock, false)
		expectCaregivers(mock)

		_, err := svc.Report(ctx, "patient-1", -6.3, 106.9, nil, 1756700000)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a first report already outside alerts immediately", func(t *testing.T) {
		svc, mock := newTrackingService(t)
		expectZone(mock, -6.2, 106.8, 250)
		expectLockedUpsert(mock, sql.ErrNoRows)
		expectCaregivers(mock)
		mock.ExpectExec(`INSERT INTO zone_events`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := svc.Report(ctx, "patient-1", -6.3, 106.9, nil, 1756700000)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCrossedBoundary(t *testing.T) {
	in, out := true, false

	assert.True(t, crossedBoundary(nil, false), "first report outside counts as an exit")
	assert.False(t, crossedBoundary(nil, true), "first report inside is quiet")
	assert.True(t, crossedBoundary(&in, false))
	assert.True(t, crossedBoundary(&out, true))
	assert.False(t, crossedBoundary(&in, true))
	assert.False(t, crossedBoundary(&out, false))
}
