package safezone

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// State is the monitor's edit-lifecycle state.
type State string

const (
	StateViewing State = "viewing"
	StateEditing State = "editing"
)

const defaultPositionTimeout = 10 * time.Second

// Monitor tracks a selected person's live position against their safe zone
// and runs the caregiver edit/save state machine.
//
// Classification always uses the most recently resolved position and the
// most recently selected or saved zone, last-write-wins per field. Reverse
// geocode results are guarded by a generation counter so a lookup that
// resolves after the selection changed is discarded.
type Monitor struct {
	positions PositionProvider
	geocoder  Geocoder
	directory PersonDirectory
	alerts    AlertChannel

	positionTimeout time.Duration

	mu       sync.Mutex
	state    State
	selected *MonitoredPerson
	zone     *SafeZone
	position *Coordinate
	status   *LiveStatus
	session  *EditSession
	address  Address

	geocodeGen uint64
	geocodes   sync.WaitGroup
}

// NewMonitor wires the monitor to its collaborators. geocoder and alerts
// may be nil; address display and notifications are then skipped.
func NewMonitor(positions PositionProvider, geocoder Geocoder, directory PersonDirectory, alerts AlertChannel) *Monitor {
	return &Monitor{
		positions:       positions,
		geocoder:        geocoder,
		directory:       directory,
		alerts:          alerts,
		positionTimeout: defaultPositionTimeout,
		state:           StateViewing,
	}
}

// SetPositionTimeout overrides the acquisition timeout (device dependent).
func (m *Monitor) SetPositionTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.positionTimeout = d
	}
}

// State reports the current edit-lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Selected returns a copy of the currently selected person, if any.
func (m *Monitor) Selected() (MonitoredPerson, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return MonitoredPerson{}, false
	}
	p := *m.selected
	if m.selected.SafeZone != nil {
		z := *m.selected.SafeZone
		p.SafeZone = &z
	}
	return p, true
}

// Status returns the latest classification. ok is false until both a
// position and a zone have resolved.
func (m *Monitor) Status() (LiveStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return LiveStatus{}, false
	}
	return *m.status, true
}

// Address returns the display address for the active zone center (or the
// candidate center while editing). Empty when no lookup has resolved.
func (m *Monitor) Address() Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address
}

// Session returns a copy of the in-progress edit session.
func (m *Monitor) Session() (EditSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return EditSession{}, false
	}
	s := *m.session
	if m.session.CandidateCenter != nil {
		c := *m.session.CandidateCenter
		s.CandidateCenter = &c
	}
	return s, true
}

// SelectPerson switches the monitored person. Any in-progress edit session
// is discarded and a best-effort address lookup is started for the
// person's zone center. Passing nil clears the selection.
func (m *Monitor) SelectPerson(ctx context.Context, person *MonitoredPerson) {
	m.mu.Lock()
	m.session = nil
	m.state = StateViewing
	m.address = Address{}
	m.geocodeGen++
	gen := m.geocodeGen

	if person == nil {
		m.selected = nil
		m.zone = nil
		m.status = nil
		m.mu.Unlock()
		return
	}

	p := *person
	if person.SafeZone != nil {
		z := *person.SafeZone
		p.SafeZone = &z
		m.zone = &z
	} else {
		m.zone = nil
	}
	m.selected = &p
	m.recomputeLocked()

	var center *Coordinate
	if m.zone != nil {
		c := m.zone.Center
		center = &c
	}
	m.mu.Unlock()

	if center != nil {
		m.lookupAddress(ctx, gen, *center)
	}
}

// UpdatePosition records the latest resolved position and recomputes the
// live status. Returns ErrNoZone while the selected person has no zone.
func (m *Monitor) UpdatePosition(position Coordinate) (LiveStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := position
	m.position = &p
	m.recomputeLocked()
	if m.status == nil {
		return LiveStatus{}, ErrNoZone
	}
	return *m.status, nil
}

// AcquirePosition fetches a fix from the PositionProvider under the
// configured timeout and feeds it into the monitor. A timeout surfaces as
// ErrUnavailable, distinct from ErrPermissionDenied.
func (m *Monitor) AcquirePosition(ctx context.Context) (Coordinate, error) {
	m.mu.Lock()
	timeout := m.positionTimeout
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	position, err := m.positions.CurrentPosition(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrPermissionDenied):
			return Coordinate{}, ErrPermissionDenied
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrUnavailable):
			return Coordinate{}, ErrUnavailable
		default:
			return Coordinate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	m.UpdatePosition(position)
	return position, nil
}

// BeginEdit enters edit mode. Requires a selected person and the caregiver
// role; fails closed with no state change otherwise. The candidate radius
// defaults to the person's existing zone radius, or DefaultRadiusMeters.
func (m *Monitor) BeginEdit(role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if role != RoleCaregiver {
		return &AuthorizationError{Role: role}
	}
	if m.selected == nil {
		return ErrNoSelection
	}

	radius := DefaultRadiusMeters
	if m.selected.SafeZone != nil {
		radius = m.selected.SafeZone.RadiusMeters
	}
	m.session = &EditSession{CandidateRadiusMeters: radius}
	m.state = StateEditing
	return nil
}

// SetCandidateCenter records the tapped map point as the new zone center
// and kicks off a best-effort address lookup for it.
func (m *Monitor) SetCandidateCenter(ctx context.Context, point Coordinate) error {
	m.mu.Lock()
	if m.state != StateEditing || m.session == nil {
		m.mu.Unlock()
		return ErrNotEditing
	}
	next := *m.session
	c := point
	next.CandidateCenter = &c
	m.session = &next
	m.geocodeGen++
	gen := m.geocodeGen
	m.mu.Unlock()

	m.lookupAddress(ctx, gen, point)
	return nil
}

// SetCandidateRadius updates the candidate radius. Rejects non-positive or
// non-finite values without touching the session.
func (m *Monitor) SetCandidateRadius(meters float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateEditing || m.session == nil {
		return ErrNotEditing
	}
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters <= 0 {
		return &ValidationError{Field: "radius_meters", Reason: "must be greater than zero"}
	}
	next := *m.session
	next.CandidateRadiusMeters = meters
	m.session = &next
	return nil
}

// SaveEdit validates the candidate zone, persists it through the
// PersonDirectory, and returns to Viewing. On persistence failure the edit
// session is retained so the caregiver can retry, and the failure is
// surfaced once through the AlertChannel.
func (m *Monitor) SaveEdit(ctx context.Context) (SafeZone, error) {
	m.mu.Lock()
	if m.state != StateEditing || m.session == nil {
		m.mu.Unlock()
		return SafeZone{}, ErrNotEditing
	}
	if m.selected == nil {
		m.mu.Unlock()
		return SafeZone{}, &ValidationError{Field: "person", Reason: "no monitored person selected"}
	}
	if m.session.CandidateCenter == nil {
		m.mu.Unlock()
		return SafeZone{}, &ValidationError{Field: "center", Reason: "tap the map to choose a zone center"}
	}
	zone := SafeZone{
		Center:       *m.session.CandidateCenter,
		RadiusMeters: m.session.CandidateRadiusMeters,
	}
	if err := zone.Validate(); err != nil {
		m.mu.Unlock()
		return SafeZone{}, err
	}
	personID := m.selected.ID
	m.mu.Unlock()

	saved, err := m.directory.UpdateSafeZone(ctx, personID, zone)
	if err != nil {
		if m.alerts != nil {
			m.alerts.Notify("error", "Could not save the safe zone. Please try again.")
		}
		return SafeZone{}, &PersistenceError{Err: err}
	}

	m.mu.Lock()
	z := saved
	if m.selected != nil && m.selected.ID == personID {
		m.selected.SafeZone = &z
	}
	m.zone = &z
	m.session = nil
	m.state = StateViewing
	m.recomputeLocked()
	m.mu.Unlock()

	if m.alerts != nil {
		m.alerts.Notify("success", "Safe zone updated.")
	}
	return saved, nil
}

// CancelEdit discards the edit session without persisting anything.
func (m *Monitor) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.state = StateViewing
}

func (m *Monitor) recomputeLocked() {
	if m.position == nil || m.zone == nil {
		m.status = nil
		return
	}
	status, err := Classify(*m.position, m.zone)
	if err != nil {
		m.status = nil
		return
	}
	m.status = &status
}

// lookupAddress resolves the address for a point in the background. The
// result is applied only if no newer selection or center change happened
// while the lookup was in flight. Failures leave the address blank.
func (m *Monitor) lookupAddress(ctx context.Context, gen uint64, point Coordinate) {
	if m.geocoder == nil {
		return
	}
	m.geocodes.Add(1)
	go func() {
		defer m.geocodes.Done()
		addr, err := m.geocoder.ReverseGeocode(ctx, point)
		if err != nil {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.geocodeGen {
			// Stale result from a previous selection.
			return
		}
		m.address = addr
	}()
}
