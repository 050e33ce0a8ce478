package directory

import (
	"context"
	"testing"

	"caremind-backend/internal/safezone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("lists linked persons in link order", func(t *testing.T) {
		dir := NewMemoryDirectory()
		dir.AddPerson("caregiver-1", safezone.MonitoredPerson{ID: "p1", DisplayName: "Ibu Sari"})
		dir.AddPerson("caregiver-1", safezone.MonitoredPerson{ID: "p2", DisplayName: "Pak Budi"})
		dir.AddPerson("caregiver-2", safezone.MonitoredPerson{ID: "p3", DisplayName: "Bu Rina"})

		persons, err := dir.ListMonitored(ctx, "caregiver-1")
		require.NoError(t, err)
		require.Len(t, persons, 2)
		assert.Equal(t, "Ibu Sari", persons[0].DisplayName)
		assert.Equal(t, "Pak Budi", persons[1].DisplayName)
	})

	t.Run("update rejects invalid zones before storing", func(t *testing.T) {
		dir := NewMemoryDirectory()
		dir.AddPerson("caregiver-1", safezone.MonitoredPerson{ID: "p1"})

		_, err := dir.UpdateSafeZone(ctx, "p1", safezone.SafeZone{RadiusMeters: 0})
		var verr *safezone.ValidationError
		require.ErrorAs(t, err, &verr)

		zone, err := dir.GetSafeZone(ctx, "p1")
		require.NoError(t, err)
		assert.Nil(t, zone)
	})

	t.Run("saved zone is visible through list and get", func(t *testing.T) {
		dir := NewMemoryDirectory()
		dir.AddPerson("caregiver-1", safezone.MonitoredPerson{ID: "p1", DisplayName: "Ibu Sari"})

		want := safezone.SafeZone{
			Center:       safezone.Coordinate{Latitude: -6.2, Longitude: 106.8},
			RadiusMeters: 350,
		}
		saved, err := dir.UpdateSafeZone(ctx, "p1", want)
		require.NoError(t, err)
		assert.Equal(t, want, saved)

		zone, err := dir.GetSafeZone(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, zone)
		assert.Equal(t, want, *zone)

		persons, err := dir.ListMonitored(ctx, "caregiver-1")
		require.NoError(t, err)
		require.NotNil(t, persons[0].SafeZone)
		assert.Equal(t, want, *persons[0].SafeZone)
	})

	t.Run("callers cannot mutate stored state through returned copies", func(t *testing.T) {
		dir := NewMemoryDirectory()
		dir.AddPerson("caregiver-1", safezone.MonitoredPerson{
			ID: "p1",
			SafeZone: &safezone.SafeZone{
				Center:       safezone.Coordinate{Latitude: -6.2, Longitude: 106.8},
				RadiusMeters: 350,
			},
		})

		persons, err := dir.ListMonitored(ctx, "caregiver-1")
		require.NoError(t, err)
		persons[0].SafeZone.RadiusMeters = 1

		zone, err := dir.GetSafeZone(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 350.0, zone.RadiusMeters)
	})
}
