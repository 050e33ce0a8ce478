package safezone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	jakarta := Coordinate{Latitude: -6.1849, Longitude: 106.8223}
	monas := Coordinate{Latitude: -6.1754, Longitude: 106.8272}

	t.Run("identical points are zero meters apart", func(t *testing.T) {
		assert.Zero(t, Distance(jakarta, jakarta))
		assert.Zero(t, Distance(Coordinate{}, Coordinate{}))
	})

	t.Run("is symmetric", func(t *testing.T) {
		assert.Equal(t, Distance(jakarta, monas), Distance(monas, jakarta))
	})

	t.Run("one hundredth of a degree of latitude", func(t *testing.T) {
		a := Coordinate{Latitude: -6.1849, Longitude: 106.8223}
		b := Coordinate{Latitude: -6.1749, Longitude: 106.8223}
		// 0.01 deg of latitude is roughly 1.11 km on a 6371 km sphere.
		assert.InDelta(t, 1113.0, Distance(a, b), 5.0)
	})

	t.Run("short hop within the city", func(t *testing.T) {
		d := Distance(jakarta, monas)
		assert.Greater(t, d, 1000.0)
		assert.Less(t, d, 1500.0)
	})
}

func TestClassify(t *testing.T) {
	center := Coordinate{Latitude: -6.2, Longitude: 106.8}
	zone := &SafeZone{Center: center, RadiusMeters: 300}

	t.Run("inside the circle", func(t *testing.T) {
		status, err := Classify(center, zone)
		require.NoError(t, err)
		assert.True(t, status.InZone)
		assert.Zero(t, status.DistanceMeters)
	})

	t.Run("outside the circle", func(t *testing.T) {
		far := Coordinate{Latitude: -6.21, Longitude: 106.8}
		status, err := Classify(far, zone)
		require.NoError(t, err)
		assert.False(t, status.InZone)
		assert.Greater(t, status.DistanceMeters, zone.RadiusMeters)
	})

	t.Run("point exactly on the boundary counts as inside", func(t *testing.T) {
		position := Coordinate{Latitude: -6.201, Longitude: 106.8}
		exact := &SafeZone{Center: center, RadiusMeters: Distance(position, center)}
		status, err := Classify(position, exact)
		require.NoError(t, err)
		assert.True(t, status.InZone)
		assert.Equal(t, exact.RadiusMeters, status.DistanceMeters)
	})

	t.Run("nil zone is an error", func(t *testing.T) {
		_, err := Classify(center, nil)
		require.ErrorIs(t, err, ErrNoZone)
	})
}

func TestSafeZoneValidate(t *testing.T) {
	center := Coordinate{Latitude: -6.2, Longitude: 106.8}

	valid := SafeZone{Center: center, RadiusMeters: 150}
	assert.NoError(t, valid.Validate())

	for _, radius := range []float64{0, -1, -500} {
		err := SafeZone{Center: center, RadiusMeters: radius}.Validate()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "radius_meters", verr.Field)
	}
}

func TestAddressString(t *testing.T) {
	addr := Address{Name: "Jalan Melati 12", City: "Jakarta Selatan", Province: "DKI Jakarta"}
	assert.Equal(t, "Jalan Melati 12, Jakarta Selatan, DKI Jakarta", addr.String())
	assert.Equal(t, "", Address{}.String())
}
