package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

func TestIsValidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"origin", 0, 0, true},
		{"bilbao", 43.263, -2.935, true},
		{"north pole", 90, 0, true},
		{"antimeridian", -90, -180, true},
		{"lat too high", 90.0001, 0, false},
		{"lat too low", -91, 0, false},
		{"lon too high", 0, 180.5, false},
		{"lon too low", 0, -181, false},
		{"nan lat", math.NaN(), 0, false},
		{"nan lon", 0, math.NaN(), false},
		{"inf lat", math.Inf(1), 0, false},
		{"inf lon", 0, math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := geospatial.IsValidCoordinates(tt.lat, tt.lon); got != tt.want {
				t.Errorf("IsValidCoordinates(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}
