package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caremind-backend/internal/safezone"

	"github.com/jmoiron/sqlx"
)

// PostgresDirectory is the source of truth for monitored persons and their
// safe zones. Zone rows are normalized here: the core only ever sees a
// structured SafeZone value, never a serialized string.
type PostgresDirectory struct {
	db *sqlx.DB
}

func NewPostgresDirectory(db *sqlx.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

var _ safezone.PersonDirectory = (*PostgresDirectory)(nil)

type monitoredRow struct {
	ID              string   `db:"id"`
	Name            string   `db:"name"`
	CenterLatitude  *float64 `db:"center_latitude"`
	CenterLongitude *float64 `db:"center_longitude"`
	RadiusMeters    *float64 `db:"radius_meters"`
}

// ListMonitored returns the patients linked to a caregiver, with their
// safe zones resolved (nil when none has been authored yet).
func (d *PostgresDirectory) ListMonitored(ctx context.Context, caregiverID string) ([]safezone.MonitoredPerson, error) {
	var rows []monitoredRow
	err := d.db.SelectContext(ctx, &rows, `
		SELECT u.id, u.name, z.center_latitude, z.center_longitude, z.radius_meters
		FROM caregiver_patients cp
		JOIN users u ON u.id = cp.patient_id
		LEFT JOIN safe_zones z ON z.patient_id = u.id
		WHERE cp.caregiver_id = $1
		ORDER BY u.name ASC
	`, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitored persons: %w", err)
	}

	persons := make([]safezone.MonitoredPerson, len(rows))
	for i, row := range rows {
		persons[i] = safezone.MonitoredPerson{
			ID:          row.ID,
			DisplayName: row.Name,
		}
		if row.CenterLatitude != nil && row.CenterLongitude != nil && row.RadiusMeters != nil {
			persons[i].SafeZone = &safezone.SafeZone{
				Center: safezone.Coordinate{
					Latitude:  *row.CenterLatitude,
					Longitude: *row.CenterLongitude,
				},
				RadiusMeters: *row.RadiusMeters,
			}
		}
	}

	return persons, nil
}

// GetSafeZone loads a patient's zone; returns nil when none exists.
func (d *PostgresDirectory) GetSafeZone(ctx context.Context, patientID string) (*safezone.SafeZone, error) {
	var row struct {
		CenterLatitude  float64 `db:"center_latitude"`
		CenterLongitude float64 `db:"center_longitude"`
		RadiusMeters    float64 `db:"radius_meters"`
	}
	err := d.db.GetContext(ctx, &row, `
		SELECT center_latitude, center_longitude, radius_meters
		FROM safe_zones WHERE patient_id = $1
	`, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load safe zone: %w", err)
	}

	return &safezone.SafeZone{
		Center: safezone.Coordinate{
			Latitude:  row.CenterLatitude,
			Longitude: row.CenterLongitude,
		},
		RadiusMeters: row.RadiusMeters,
	}, nil
}

// UpdateSafeZone persists a zone for a patient (insert or replace).
// Invalid zones are rejected before touching the database.
func (d *PostgresDirectory) UpdateSafeZone(ctx context.Context, personID string, zone safezone.SafeZone) (safezone.SafeZone, error) {
	if err := zone.Validate(); err != nil {
		return safezone.SafeZone{}, err
	}

	now := time.Now().Unix()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO safe_zones (patient_id, center_latitude, center_longitude, radius_meters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (patient_id) DO UPDATE SET
			center_latitude = EXCLUDED.center_latitude,
			center_longitude = EXCLUDED.center_longitude,
			radius_meters = EXCLUDED.radius_meters,
			updated_at = EXCLUDED.updated_at
	`, personID, zone.Center.Latitude, zone.Center.Longitude, zone.RadiusMeters, now)
	if err != nil {
		return safezone.SafeZone{}, fmt.Errorf("failed to save safe zone: %w", err)
	}

	return zone, nil
}

// IsLinked reports whether a caregiver is assigned to a patient.
func (d *PostgresDirectory) IsLinked(ctx context.Context, caregiverID, patientID string) (bool, error) {
	var count int
	err := d.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM caregiver_patients
		WHERE caregiver_id = $1 AND patient_id = $2
	`, caregiverID, patientID)
	if err != nil {
		return false, fmt.Errorf("failed to check caregiver link: %w", err)
	}
	return count > 0, nil
}

// Caregivers returns the caregiver IDs linked to a patient.
func (d *PostgresDirectory) Caregivers(ctx context.Context, patientID string) ([]string, error) {
	var ids []string
	err := d.db.SelectContext(ctx, &ids, `
		SELECT caregiver_id FROM caregiver_patients WHERE patient_id = $1
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}
	return ids, nil
}
