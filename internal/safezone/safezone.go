package safezone

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// DefaultRadiusMeters is the candidate radius used when a person has no
// safe zone configured yet.
const DefaultRadiusMeters = 500.0

// Roles recognized by the monitor. Only caregivers may author safe zones.
const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SafeZone is a circular geofence around a center point.
type SafeZone struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
}

// Validate rejects zones that must not reach persistence.
func (z SafeZone) Validate() error {
	if math.IsNaN(z.RadiusMeters) || math.IsInf(z.RadiusMeters, 0) || z.RadiusMeters <= 0 {
		return &ValidationError{Field: "radius_meters", Reason: "must be greater than zero"}
	}
	return nil
}

// MonitoredPerson is someone whose position is being safeguarded.
// SafeZone is nil until a caregiver has authored one.
type MonitoredPerson struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	SafeZone    *SafeZone `json:"safe_zone,omitempty"`
}

// LiveStatus is the derived in/out-of-zone classification for the most
// recent position. Never persisted.
type LiveStatus struct {
	DistanceMeters float64 `json:"distance_meters"`
	InZone         bool    `json:"in_zone"`
}

// EditSession holds a caregiver's in-progress zone edits. It is replaced
// wholesale on every transition rather than patched field by field.
type EditSession struct {
	CandidateCenter       *Coordinate `json:"candidate_center,omitempty"`
	CandidateRadiusMeters float64     `json:"candidate_radius_meters"`
}

// Distance returns the great-circle (haversine) distance between two
// coordinates in meters.
func Distance(a, b Coordinate) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	deltaPhi := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Classify computes the live status of a position against a zone.
// A point exactly on the circle counts as inside. Callers must not pass a
// nil zone; that means no geofence has been authored yet.
func Classify(position Coordinate, zone *SafeZone) (LiveStatus, error) {
	if zone == nil {
		return LiveStatus{}, ErrNoZone
	}
	d := Distance(position, zone.Center)
	return LiveStatus{DistanceMeters: d, InZone: d <= zone.RadiusMeters}, nil
}
