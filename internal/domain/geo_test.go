package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	t.Run("zero for the same point", func(t *testing.T) {
		assert.Equal(t, 0.0, HaversineKm(37.8, -122.4, 37.8, -122.4))
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := HaversineKm(40.7128, -74.0060, 51.5074, -0.1278)
		ba := HaversineKm(51.5074, -0.1278, 40.7128, -74.0060)
		assert.InDelta(t, ab, ba, 1e-9)
	})

	t.Run("new york to london", func(t *testing.T) {
		assert.InDelta(t, 5570, HaversineKm(40.7128, -74.0060, 51.5074, -0.1278), 10)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		assert.InDelta(t, 111.19, HaversineKm(0, 0, 1, 0), 0.01)
	})

	t.Run("antipodes", func(t *testing.T) {
		assert.InDelta(t, math.Pi*EarthRadiusKm, HaversineKm(0, 0, 0, 180), 1e-6)
	})

	t.Run("NaN propagates", func(t *testing.T) {
		assert.True(t, math.IsNaN(HaversineKm(math.NaN(), 0, 0, 0)))
	})
}

func TestMilesToKm(t *testing.T) {
	assert.InDelta(t, 40.2336, MilesToKm(25), 1e-9)
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"origin", 0, 0, true},
		{"bounds", 90, -180, true},
		{"lat too high", 90.0001, 0, false},
		{"lon too low", 0, -180.5, false},
		{"NaN", math.NaN(), 0, false},
		{"Inf", 0, math.Inf(1), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidCoordinate(tc.lat, tc.lon))
		})
	}
}
