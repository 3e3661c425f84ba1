package geo

import (
	"math"
	"testing"
)

func TestDistance_IdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
		{89.9, 179.9},
	}
	for _, p := range points {
		if d := Distance(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("Distance(%v, %v, same) = %v, want 0", p[0], p[1], d)
		}
	}
}

func TestDistance_Symmetry(t *testing.T) {
	d1 := Distance(48.8566, 2.3522, 40.7128, -74.0060)
	d2 := Distance(40.7128, -74.0060, 48.8566, 2.3522)
	if math.Abs(d1-d2) > 1e-6 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestDistance_KnownSeparations(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		// One degree of longitude at the equator is ~111.19 km.
		{"one degree longitude at equator", 0, 0, 0, 1, 111195, 50},
		// 0.002 degrees longitude at the equator is ~222 m (the failure
		// scenario distance).
		{"222m separation", 0, 0, 0, 0.002, 222.4, 1},
		// 0.0005 degrees is ~55.6 m, inside the default 100 m radius.
		{"55m separation", 0, 0, 0, 0.0005, 55.6, 0.5},
		{"paris to london", 48.8566, 2.3522, 51.5074, -0.1278, 343500, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Distance() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistance_Monotonic(t *testing.T) {
	prev := -1.0
	for _, dLng := range []float64{0, 0.0001, 0.0005, 0.001, 0.002, 0.01, 0.1, 1} {
		d := Distance(0, 0, 0, dLng)
		if d <= prev {
			t.Fatalf("distance not monotonic: Distance(0,0,0,%v) = %v, previous %v", dLng, d, prev)
		}
		prev = d
	}
}

func TestDistance_NearAntipodal(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	want := math.Pi * EarthRadiusMeters
	if math.Abs(d-want) > 1 {
		t.Errorf("antipodal distance = %v, want %v", d, want)
	}
	if math.IsNaN(d) {
		t.Error("antipodal distance is NaN")
	}
}
