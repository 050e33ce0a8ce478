package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"caremind-backend/internal/directory"
	"caremind-backend/internal/models"
	"caremind-backend/internal/safezone"
	"caremind-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TrackingService ingests patient position reports, keeps the latest
// position row fresh, detects safe-zone boundary crossings and fans the
// result out to connected caregivers.
type TrackingService struct {
	db        *sqlx.DB
	directory *directory.PostgresDirectory
	fcm       *FCMService
	hub       *websocket.Hub
}

func NewTrackingService(db *sqlx.DB, dir *directory.PostgresDirectory, fcm *FCMService, hub *websocket.Hub) *TrackingService {
	return &TrackingService{
		db:        db,
		directory: dir,
		fcm:       fcm,
		hub:       hub,
	}
}

// IngestLocation satisfies websocket.LocationSink. Errors are logged, not
// returned - a dropped WebSocket report must never kill the read pump.
func (t *TrackingService) IngestLocation(patientID string, latitude, longitude float64, recordedAt int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := t.Report(ctx, patientID, latitude, longitude, nil, recordedAt); err != nil {
		log.Printf("❌ Failed to ingest location for patient %s: %v", patientID, err)
	}
}

// Report stores a patient position, classifies it against the stored safe
// zone and emits a zone event when the in/out state flips. Returns the
// stored row.
func (t *TrackingService) Report(ctx context.Context, patientID string, latitude, longitude float64, accuracy *float64, recordedAt int64) (models.PatientLocation, error) {
	zone, err := t.directory.GetSafeZone(ctx, patientID)
	if err != nil {
		return models.PatientLocation{}, err
	}

	position := safezone.Coordinate{Latitude: latitude, Longitude: longitude}

	var inZone *bool
	var distance *float64
	if zone != nil {
		status, err := safezone.Classify(position, zone)
		if err != nil {
			return models.PatientLocation{}, err
		}
		inZone = &status.InZone
		distance = &status.DistanceMeters
	}

	now := time.Now().Unix()
	location := models.PatientLocation{
		PatientID:      patientID,
		Latitude:       latitude,
		Longitude:      longitude,
		Accuracy:       accuracy,
		Timestamp:      recordedAt,
		InZone:         inZone,
		DistanceMeters: distance,
		UpdatedAt:      now,
	}

	// Read the previous in/out state and write the new one in one
	// transaction. Reports for the same patient can arrive concurrently
	// over REST and WebSocket; without the row lock two of them could
	// both see the same previous state and double-fire a zone event.
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.PatientLocation{}, fmt.Errorf("failed to begin location update: %w", err)
	}
	defer tx.Rollback()

	previous, err := previousInZone(ctx, tx, patientID)
	if err != nil {
		return models.PatientLocation{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO patient_current_location (patient_id, latitude, longitude, accuracy, timestamp, in_zone, distance_meters, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			accuracy = EXCLUDED.accuracy,
			timestamp = EXCLUDED.timestamp,
			in_zone = EXCLUDED.in_zone,
			distance_meters = EXCLUDED.distance_meters,
			updated_at = EXCLUDED.updated_at
	`, patientID, latitude, longitude, accuracy, recordedAt, inZone, distance, now)
	if err != nil {
		return models.PatientLocation{}, fmt.Errorf("failed to save patient location: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.PatientLocation{}, fmt.Errorf("failed to save patient location: %w", err)
	}

	caregivers, err := t.directory.Caregivers(ctx, patientID)
	if err != nil {
		return models.PatientLocation{}, err
	}

	t.hub.BroadcastToUsers(caregivers, map[string]interface{}{
		"type": "patient_location_update",
		"data": location,
	})

	if inZone != nil && crossedBoundary(previous, *inZone) {
		t.recordZoneEvent(ctx, patientID, location, caregivers)
	}

	return location, nil
}

// Current returns the latest stored position for a patient, or sql.ErrNoRows
// when none has been reported.
func (t *TrackingService) Current(ctx context.Context, patientID string) (models.PatientLocation, error) {
	var location models.PatientLocation
	err := t.db.GetContext(ctx, &location, `
		SELECT patient_id, latitude, longitude, accuracy, timestamp, in_zone, distance_meters, updated_at
		FROM patient_current_location WHERE patient_id = $1
	`, patientID)
	return location, err
}

// previousInZone locks the patient's current-location row and returns its
// in_zone state, or nil on the first report. FOR UPDATE serialises
// concurrent reports for the same patient.
func previousInZone(ctx context.Context, tx *sqlx.Tx, patientID string) (*bool, error) {
	var inZone *bool
	err := tx.GetContext(ctx, &inZone, `
		SELECT in_zone FROM patient_current_location WHERE patient_id = $1
		FOR UPDATE
	`, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load previous location state: %w", err)
	}
	return inZone, nil
}

// crossedBoundary reports whether the in/out classification flipped. A first
// report that already sits outside the zone counts as a crossing so that
// caregivers are alerted immediately.
func crossedBoundary(previous *bool, inZone bool) bool {
	if previous == nil {
		return !inZone
	}
	return *previous != inZone
}

func (t *TrackingService) recordZoneEvent(ctx context.Context, patientID string, location models.PatientLocation, caregivers []string) {
	eventType := "enter"
	if location.InZone != nil && !*location.InZone {
		eventType = "exit"
	}

	var distance float64
	if location.DistanceMeters != nil {
		distance = *location.DistanceMeters
	}

	event := models.ZoneEvent{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		EventType:      eventType,
		Latitude:       location.Latitude,
		Longitude:      location.Longitude,
		DistanceMeters: distance,
		OccurredAt:     time.Now().Unix(),
	}

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO zone_events (id, patient_id, event_type, latitude, longitude, distance_meters, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.PatientID, event.EventType, event.Latitude, event.Longitude, event.DistanceMeters, event.OccurredAt)
	if err != nil {
		log.Printf("❌ Failed to record zone event: %v", err)
		return
	}

	log.Printf("⚠️ Zone %s for patient %s (distance: %.0fm)", eventType, patientID, distance)

	t.hub.BroadcastToUsers(caregivers, map[string]interface{}{
		"type": "zone_event",
		"data": event.ToResponse(),
	})

	if eventType == "exit" {
		t.alertCaregivers(ctx, patientID, caregivers, distance)
	}
}

func (t *TrackingService) alertCaregivers(ctx context.Context, patientID string, caregivers []string, distance float64) {
	if t.fcm == nil || len(caregivers) == 0 {
		return
	}

	var patientName string
	if err := t.db.GetContext(ctx, &patientName, `SELECT name FROM users WHERE id = $1`, patientID); err != nil {
		log.Printf("❌ Failed to load patient name for alert: %v", err)
		return
	}

	query, args, err := sqlx.In(`SELECT token FROM fcm_tokens WHERE user_id IN (?)`, caregivers)
	if err != nil {
		log.Printf("❌ Failed to build token query: %v", err)
		return
	}

	var tokens []string
	if err := t.db.SelectContext(ctx, &tokens, t.db.Rebind(query), args...); err != nil {
		log.Printf("❌ Failed to load caregiver FCM tokens: %v", err)
		return
	}

	for _, token := range tokens {
		if err := t.fcm.SendZoneExitAlert(token, patientName, distance); err != nil {
			log.Printf("❌ Failed to send zone exit alert: %v", err)
		}
	}
}
