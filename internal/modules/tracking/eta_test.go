package tracking

import (
	"math"
	"testing"
	"time"

	"firstcall/internal/models"
)

func coord(lat, lon float64) *models.Coordinate {
	return &models.Coordinate{Latitude: lat, Longitude: lon, ObservedAt: time.Now()}
}

func TestDistanceMeters(t *testing.T) {
	// 0.1 degrees of latitude is roughly 11.12 km anywhere on the sphere.
	d := DistanceMeters(*coord(13.0827, 80.2707), *coord(13.1827, 80.2707))
	if math.Abs(d-11119.5) > 5 {
		t.Errorf("DistanceMeters = %.1f, want ~11119.5", d)
	}
	if d := DistanceMeters(*coord(13.0827, 80.2707), *coord(13.0827, 80.2707)); d != 0 {
		t.Errorf("DistanceMeters of identical points = %f, want 0", d)
	}
}

func TestEstimate(t *testing.T) {
	est := NewEstimator(15, 40)
	requester := coord(13.0827, 80.2707)

	testCases := []struct {
		name          string
		prev, current *models.Coordinate
		requester     *models.Coordinate
		wantMinutes   int
		wantEstimated bool
	}{
		{"no vehicle samples", nil, nil, requester, 15, false},
		{"one vehicle sample", nil, coord(13.1827, 80.2707), requester, 15, false},
		{"no requester", coord(13.2, 80.2707), coord(13.1827, 80.2707), nil, 15, false},
		{"11km at 40kmh", coord(13.2, 80.2707), coord(13.1827, 80.2707), requester, 17, true},
		{"at requester", coord(13.0828, 80.2707), coord(13.0827, 80.2707), requester, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			minutes, estimated := est.Estimate(tc.prev, tc.current, tc.requester)
			if minutes != tc.wantMinutes || estimated != tc.wantEstimated {
				t.Errorf("Estimate = (%d, %v), want (%d, %v)", minutes, estimated, tc.wantMinutes, tc.wantEstimated)
			}
		})
	}
}

func TestEstimateNeverNegative(t *testing.T) {
	if m, _ := NewEstimator(-5, 40).Estimate(nil, nil, nil); m != 0 {
		t.Errorf("negative default: Estimate = %d, want 0", m)
	}
	for _, speed := range []float64{0, -10} {
		m, estimated := NewEstimator(15, speed).Estimate(coord(1, 1), coord(2, 2), coord(3, 3))
		if m != 15 || estimated {
			t.Errorf("speed %.0f: Estimate = (%d, %v), want (15, false)", speed, m, estimated)
		}
	}
}
