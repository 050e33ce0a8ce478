package safezone

import (
	"context"
	"strings"
)

// Address is a reverse-geocoded place description for display next to a
// zone center. All fields optional; a zero Address renders as "".
type Address struct {
	Name     string `json:"name,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
}

func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Name, a.District, a.City, a.Province} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// PositionProvider supplies the device's current coordinates.
// Implementations should honor ctx cancellation; failures map to
// ErrPermissionDenied or ErrUnavailable.
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (Coordinate, error)
}

// Geocoder resolves coordinates into a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, point Coordinate) (Address, error)
}

// PersonDirectory is the source of truth for monitored persons and their
// persisted safe zones.
type PersonDirectory interface {
	ListMonitored(ctx context.Context, caregiverID string) ([]MonitoredPerson, error)
	UpdateSafeZone(ctx context.Context, personID string, zone SafeZone) (SafeZone, error)
}

// AlertChannel surfaces user-facing success/failure notifications.
type AlertChannel interface {
	Notify(kind, message string)
}
