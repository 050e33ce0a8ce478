package safezone

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeDirectory struct {
	mu        sync.Mutex
	zones     map[string]SafeZone
	updateErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{zones: make(map[string]SafeZone)}
}

func (d *fakeDirectory) ListMonitored(ctx context.Context, caregiverID string) ([]MonitoredPerson, error) {
	return nil, nil
}

func (d *fakeDirectory) UpdateSafeZone(ctx context.Context, personID string, zone SafeZone) (SafeZone, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return SafeZone{}, d.updateErr
	}
	d.zones[personID] = zone
	return zone, nil
}

type fakeGeocoder struct {
	fn func(ctx context.Context, point Coordinate) (Address, error)
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, point Coordinate) (Address, error) {
	if g.fn == nil {
		return Address{}, ErrLookupFailed
	}
	return g.fn(ctx, point)
}

type fakeAlerts struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (a *fakeAlerts) Notify(kind, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if kind == "error" {
		a.errors = append(a.errors, message)
	} else {
		a.infos = append(a.infos, message)
	}
}

func (a *fakeAlerts) errorCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errors)
}

type fakePositions struct {
	fn func(ctx context.Context) (Coordinate, error)
}

func (p *fakePositions) CurrentPosition(ctx context.Context) (Coordinate, error) {
	return p.fn(ctx)
}

type MonitorSuite struct {
	suite.Suite
	directory *fakeDirectory
	geocoder  *fakeGeocoder
	alerts    *fakeAlerts
	positions *fakePositions
	monitor   *Monitor
	ctx       context.Context
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) SetupTest() {
	s.directory = newFakeDirectory()
	s.geocoder = &fakeGeocoder{}
	s.alerts = &fakeAlerts{}
	s.positions = &fakePositions{}
	s.monitor = NewMonitor(s.positions, s.geocoder, s.directory, s.alerts)
	s.ctx = context.Background()
}

func (s *MonitorSuite) personWithZone() *MonitoredPerson {
	return &MonitoredPerson{
		ID:          "patient-1",
		DisplayName: "Ibu Sari",
		SafeZone: &SafeZone{
			Center:       Coordinate{Latitude: -6.1849, Longitude: 106.8223},
			RadiusMeters: 250,
		},
	}
}

func (s *MonitorSuite) TestSelectPerson() {
	s.Run("adopts the person's zone and classifies new positions", func() {
		s.monitor.SelectPerson(s.ctx, s.personWithZone())

		status, err := s.monitor.UpdatePosition(Coordinate{Latitude: -6.1849, Longitude: 106.8223})
		s.Require().NoError(err)
		s.True(status.InZone)
		s.Zero(status.DistanceMeters)
	})

	s.Run("no zone means no classification until one is authored", func() {
		s.monitor.SelectPerson(s.ctx, &MonitoredPerson{ID: "patient-2", DisplayName: "Pak Budi"})

		_, err := s.monitor.UpdatePosition(Coordinate{Latitude: -6.2, Longitude: 106.8})
		s.Require().ErrorIs(err, ErrNoZone)
		_, ok := s.monitor.Status()
		s.False(ok)
	})

	s.Run("switching persons resets an in-progress edit session", func() {
		s.monitor.SelectPerson(s.ctx, s.personWithZone())
		s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))
		s.Equal(StateEditing, s.monitor.State())

		s.monitor.SelectPerson(s.ctx, &MonitoredPerson{ID: "patient-2", DisplayName: "Pak Budi"})
		s.Equal(StateViewing, s.monitor.State())
		_, ok := s.monitor.Session()
		s.False(ok)
	})
}

func (s *MonitorSuite) TestBeginEdit() {
	// Each scenario starts from a fresh monitor. SetupTest only runs
	// per test method, not per subtest, and a selection made in one
	// subtest would carry into the next.
	s.Run("rejects non-caregiver roles with no state change", func() {
		s.SetupTest()
		s.monitor.SelectPerson(s.ctx, s.personWithZone())

		err := s.monitor.BeginEdit(RolePatient)
		var aerr *AuthorizationError
		s.Require().ErrorAs(err, &aerr)
		s.Equal(RolePatient, aerr.Role)
		s.Equal(StateViewing, s.monitor.State())
	})

	s.Run("requires a selected person", func() {
		s.SetupTest()
		s.Require().ErrorIs(s.monitor.BeginEdit(RoleCaregiver), ErrNoSelection)
	})

	s.Run("defaults candidate radius to the existing zone radius", func() {
		s.SetupTest()
		s.monitor.SelectPerson(s.ctx, s.personWithZone())
		s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))

		session, ok := s.monitor.Session()
		s.Require().True(ok)
		s.Nil(session.CandidateCenter)
		s.Equal(250.0, session.CandidateRadiusMeters)
	})

	s.Run("defaults candidate radius to 500m when no zone exists", func() {
		s.SetupTest()
		s.monitor.SelectPerson(s.ctx, &MonitoredPerson{ID: "patient-2", DisplayName: "Pak Budi"})
		s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))

		session, ok := s.monitor.Session()
		s.Require().True(ok)
		s.Equal(DefaultRadiusMeters, session.CandidateRadiusMeters)
	})
}

func (s *MonitorSuite) TestSetCandidateRadius() {
	s.monitor.SelectPerson(s.ctx, s.personWithZone())
	s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))

	s.Run("accepts positive radii", func() {
		s.Require().NoError(s.monitor.SetCandidateRadius(300))
		session, _ := s.monitor.Session()
		s.Equal(300.0, session.CandidateRadiusMeters)
	})

	s.Run("rejects zero and negative radii without touching the session", func() {
		for _, radius := range []float64{0, -50} {
			err := s.monitor.SetCandidateRadius(radius)
			var verr *ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal("radius_meters", verr.Field)
		}
		session, _ := s.monitor.Session()
		s.Equal(300.0, session.CandidateRadiusMeters)
	})

	s.Run("rejected outside edit mode", func() {
		s.monitor.CancelEdit()
		s.Require().ErrorIs(s.monitor.SetCandidateRadius(300), ErrNotEditing)
	})
}

func (s *MonitorSuite) TestSaveEdit() {
	// Fresh monitor and directory per scenario; the empty-directory
	// assertions below depend on no earlier subtest having saved.
	s.Run("authors a zone for a person who had none", func() {
		s.SetupTest()
		s.monitor.SelectPerson(s.ctx, &MonitoredPerson{ID: "patient-2", DisplayName: "Pak Budi"})
		s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))
		s.Require().NoError(s.monitor.SetCandidateCenter(s.ctx, Coordinate{Latitude: -6.2, Longitude: 106.8}))
		s.Require().NoError(s.monitor.SetCandidateRadius(300))

		saved, err := s.monitor.SaveEdit(s.ctx)
		s.Require().NoError(err)
		s.Equal(SafeZone{Center: Coordinate{Latitude: -6.2, Longitude: 106.8}, RadiusMeters: 300}, saved)
		s.Equal(saved, s.directory.zones["patient-2"])

		selected, ok := s.monitor.Selected()
		s.Require().True(ok)
		s.Require().NotNil(selected.SafeZone)
		s.Equal(saved, *selected.SafeZone)
		s.Equal(StateViewing, s.monitor.State())
		_, ok = s.monitor.Session()
		s.False(ok)

		// Classification becomes available against the new zone.
		status, err := s.monitor.UpdatePosition(Coordinate{Latitude: -6.2, Longitude: 106.8})
		s.Require().NoError(err)
		s.True(status.InZone)
	})

	s.Run("fails without a candidate center", func() {
		s.SetupTest()
		s.monitor.SelectPerson(s.ctx, s.personWithZone())
		s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))

		_, err := s.monitor.SaveEdit(s.ctx)
		var verr *ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal("center", verr.Field)
		s.Equal(StateEditing, s.monitor.State())
	})

	s.Run("fails on a non-positive radius and preserves the session", func() {
		s.SetupTest()
		s.monitor.SelectPerson(s.ctx, s.personWithZone())
		s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))
		s.Require().NoError(s.monitor.SetCandidateCenter(s.ctx, Coordinate{Latitude: -6.19, Longitude: 106.83}))

		// A stale client can submit a radius the setter would have refused.
		s.monitor.mu.Lock()
		s.monitor.session.CandidateRadiusMeters = 0
		s.monitor.mu.Unlock()

		_, err := s.monitor.SaveEdit(s.ctx)
		var verr *ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal("radius_meters", verr.Field)

		session, ok := s.monitor.Session()
		s.Require().True(ok)
		s.Require().NotNil(session.CandidateCenter)
		s.Equal(Coordinate{Latitude: -6.19, Longitude: 106.83}, *session.CandidateCenter)
		s.Zero(session.CandidateRadiusMeters)
		s.Equal(StateEditing, s.monitor.State())
		s.Empty(s.directory.zones)
	})

	s.Run("persistence failure keeps the session and alerts exactly once", func() {
		s.SetupTest()
		s.directory.updateErr = errors.New("network unreachable")
		s.monitor.SelectPerson(s.ctx, s.personWithZone())
		s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))
		s.Require().NoError(s.monitor.SetCandidateCenter(s.ctx, Coordinate{Latitude: -6.19, Longitude: 106.83}))
		s.Require().NoError(s.monitor.SetCandidateRadius(400))

		_, err := s.monitor.SaveEdit(s.ctx)
		var perr *PersistenceError
		s.Require().ErrorAs(err, &perr)

		s.Equal(StateEditing, s.monitor.State())
		session, ok := s.monitor.Session()
		s.Require().True(ok)
		s.Equal(Coordinate{Latitude: -6.19, Longitude: 106.83}, *session.CandidateCenter)
		s.Equal(400.0, session.CandidateRadiusMeters)
		s.Equal(1, s.alerts.errorCount())

		// Retry succeeds once the directory recovers.
		s.directory.updateErr = nil
		saved, err := s.monitor.SaveEdit(s.ctx)
		s.Require().NoError(err)
		s.Equal(400.0, saved.RadiusMeters)
		s.Equal(StateViewing, s.monitor.State())
	})
}

func (s *MonitorSuite) TestCancelEdit() {
	s.monitor.SelectPerson(s.ctx, s.personWithZone())
	s.Require().NoError(s.monitor.BeginEdit(RoleCaregiver))
	s.Require().NoError(s.monitor.SetCandidateCenter(s.ctx, Coordinate{Latitude: -6.3, Longitude: 106.9}))

	s.monitor.CancelEdit()

	s.Equal(StateViewing, s.monitor.State())
	_, ok := s.monitor.Session()
	s.False(ok)
	s.Empty(s.directory.zones)
}

func (s *MonitorSuite) TestStaleGeocodeDiscarded() {
	first := s.personWithZone()
	second := &MonitoredPerson{
		ID:          "patient-2",
		DisplayName: "Pak Budi",
		SafeZone: &SafeZone{
			Center:       Coordinate{Latitude: -6.3, Longitude: 106.9},
			RadiusMeters: 400,
		},
	}

	release := make(chan struct{})
	s.geocoder.fn = func(ctx context.Context, point Coordinate) (Address, error) {
		if point == first.SafeZone.Center {
			<-release
			return Address{Name: "old selection"}, nil
		}
		return Address{Name: "new selection"}, nil
	}

	s.monitor.SelectPerson(s.ctx, first)  // lookup blocks on release
	s.monitor.SelectPerson(s.ctx, second) // lookup resolves immediately

	close(release)
	s.monitor.geocodes.Wait()

	s.Equal("new selection", s.monitor.Address().Name)
}

func (s *MonitorSuite) TestGeocodeFailureLeavesAddressBlank() {
	s.geocoder.fn = func(ctx context.Context, point Coordinate) (Address, error) {
		return Address{}, ErrLookupFailed
	}

	s.monitor.SelectPerson(s.ctx, s.personWithZone())
	s.monitor.geocodes.Wait()

	s.Equal("", s.monitor.Address().String())
}

func (s *MonitorSuite) TestAcquirePosition() {
	s.Run("permission denied is surfaced as-is", func() {
		s.positions.fn = func(ctx context.Context) (Coordinate, error) {
			return Coordinate{}, ErrPermissionDenied
		}
		_, err := s.monitor.AcquirePosition(s.ctx)
		s.Require().ErrorIs(err, ErrPermissionDenied)
	})

	s.Run("timeout surfaces as unavailable, not permission denied", func() {
		s.monitor.SetPositionTimeout(20 * time.Millisecond)
		s.positions.fn = func(ctx context.Context) (Coordinate, error) {
			<-ctx.Done()
			return Coordinate{}, ctx.Err()
		}
		_, err := s.monitor.AcquirePosition(s.ctx)
		s.Require().ErrorIs(err, ErrUnavailable)
		s.Require().NotErrorIs(err, ErrPermissionDenied)
	})

	s.Run("a fix feeds classification", func() {
		s.monitor.SelectPerson(s.ctx, s.personWithZone())
		s.positions.fn = func(ctx context.Context) (Coordinate, error) {
			return Coordinate{Latitude: -6.1849, Longitude: 106.8223}, nil
		}
		_, err := s.monitor.AcquirePosition(s.ctx)
		s.Require().NoError(err)

		status, ok := s.monitor.Status()
		s.Require().True(ok)
		s.True(status.InZone)
	})
}
