package models

import "time"

// SafeZoneRecord is the persisted form of a patient's circular geofence.
// Columns are always structured (center + radius), never a serialized blob.
type SafeZoneRecord struct {
	PatientID       string  `json:"patient_id" db:"patient_id"`
	CenterLatitude  float64 `json:"center_latitude" db:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude" db:"center_longitude"`
	RadiusMeters    float64 `json:"radius_meters" db:"radius_meters"`
	UpdatedByUserID *string `json:"updated_by_user_id,omitempty" db:"updated_by_user_id"`
	CreatedAt       int64   `json:"created_at" db:"created_at"`
	UpdatedAt       int64   `json:"updated_at" db:"updated_at"`
}

// PatientLocation is the latest known position for a patient. Exactly one
// row per patient, updated via UPSERT; live tracking goes over WebSocket.
type PatientLocation struct {
	PatientID      string   `json:"patient_id" db:"patient_id"`
	Latitude       float64  `json:"latitude" db:"latitude"`
	Longitude      float64  `json:"longitude" db:"longitude"`
	Accuracy       *float64 `json:"accuracy,omitempty" db:"accuracy"`
	Timestamp      int64    `json:"timestamp" db:"timestamp"`
	InZone         *bool    `json:"in_zone,omitempty" db:"in_zone"`
	DistanceMeters *float64 `json:"distance_meters,omitempty" db:"distance_meters"`
	UpdatedAt      int64    `json:"updated_at" db:"updated_at"`
}

// ZoneEvent records a safe-zone boundary crossing.
type ZoneEvent struct {
	ID             string  `json:"id" db:"id"`
	PatientID      string  `json:"patient_id" db:"patient_id"`
	EventType      string  `json:"event_type" db:"event_type"` // "exit" or "enter"
	Latitude       float64 `json:"latitude" db:"latitude"`
	Longitude      float64 `json:"longitude" db:"longitude"`
	DistanceMeters float64 `json:"distance_meters" db:"distance_meters"`
	OccurredAt     int64   `json:"occurred_at" db:"occurred_at"`
}

type ZoneEventResponse struct {
	ID             string  `json:"id"`
	PatientID      string  `json:"patient_id"`
	EventType      string  `json:"event_type"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distance_meters"`
	OccurredAtISO  string  `json:"occurred_at_iso"`
}

func (e *ZoneEvent) ToResponse() ZoneEventResponse {
	return ZoneEventResponse{
		ID:             e.ID,
		PatientID:      e.PatientID,
		EventType:      e.EventType,
		Latitude:       e.Latitude,
		Longitude:      e.Longitude,
		DistanceMeters: e.DistanceMeters,
		OccurredAtISO:  time.Unix(e.OccurredAt, 0).Format(time.RFC3339),
	}
}
