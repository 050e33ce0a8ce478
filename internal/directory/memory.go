package directory

import (
	"context"
	"sync"

	"caremind-backend/internal/safezone"
)

// MemoryDirectory is an in-memory PersonDirectory for tests and local
// experiments. Safe for concurrent use.
type MemoryDirectory struct {
	mu      sync.RWMutex
	links   map[string][]string // caregiverID -> patientIDs, in link order
	persons map[string]safezone.MonitoredPerson
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		links:   make(map[string][]string),
		persons: make(map[string]safezone.MonitoredPerson),
	}
}

var _ safezone.PersonDirectory = (*MemoryDirectory)(nil)

// AddPerson registers a person and links them to a caregiver.
func (d *MemoryDirectory) AddPerson(caregiverID string, person safezone.MonitoredPerson) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.persons[person.ID]; !ok {
		d.links[caregiverID] = append(d.links[caregiverID], person.ID)
	}
	d.persons[person.ID] = clonePerson(person)
}

func (d *MemoryDirectory) ListMonitored(ctx context.Context, caregiverID string) ([]safezone.MonitoredPerson, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := d.links[caregiverID]
	persons := make([]safezone.MonitoredPerson, 0, len(ids))
	for _, id := range ids {
		persons = append(persons, clonePerson(d.persons[id]))
	}
	return persons, nil
}

func (d *MemoryDirectory) UpdateSafeZone(ctx context.Context, personID string, zone safezone.SafeZone) (safezone.SafeZone, error) {
	if err := zone.Validate(); err != nil {
		return safezone.SafeZone{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	person, ok := d.persons[personID]
	if !ok {
		person = safezone.MonitoredPerson{ID: personID}
	}
	z := zone
	person.SafeZone = &z
	d.persons[personID] = person
	return zone, nil
}

// GetSafeZone returns the stored zone for a person, nil when none exists.
func (d *MemoryDirectory) GetSafeZone(ctx context.Context, personID string) (*safezone.SafeZone, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	person, ok := d.persons[personID]
	if !ok || person.SafeZone == nil {
		return nil, nil
	}
	z := *person.SafeZone
	return &z, nil
}

func clonePerson(p safezone.MonitoredPerson) safezone.MonitoredPerson {
	out := p
	if p.SafeZone != nil {
		z := *p.SafeZone
		out.SafeZone = &z
	}
	return out
}
