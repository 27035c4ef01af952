package geospatial_test

import (
	"testing"

	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0m"},
		{12.4, "12m"},
		{999, "999m"},
		{999.4, "999m"},
		{1000, "1.0km"},
		{2500, "2.5km"},
		{12345, "12.3km"},
	}

	for _, tt := range tests {
		if got := geospatial.FormatDistance(tt.meters); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.meters, got, tt.want)
		}
	}
}
