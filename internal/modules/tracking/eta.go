package tracking

import (
	"math"

	"firstcall/internal/models"
)

// Estimator derives a displayable arrival estimate from the latest vehicle
// samples and the requester position.
type Estimator struct {
	defaultMinutes int
	speedKmh       float64
}

// NewEstimator creates an estimator that falls back to defaultMinutes and
// assumes the vehicle travels at speedKmh in a straight line.
func NewEstimator(defaultMinutes int, speedKmh float64) *Estimator {
	if defaultMinutes < 0 {
		defaultMinutes = 0
	}
	return &Estimator{defaultMinutes: defaultMinutes, speedKmh: speedKmh}
}

// Default returns the configured fallback ETA.
func (e *Estimator) Default() int {
	return e.defaultMinutes
}

// Estimate returns the ETA in whole minutes and whether it was computed from
// data. With fewer than two vehicle samples, or no requester position, the
// default is returned instead.
func (e *Estimator) Estimate(previous, current, requester *models.Coordinate) (int, bool) {
	if previous == nil || current == nil || requester == nil || e.speedKmh <= 0 {
		return e.defaultMinutes, false
	}

	km := DistanceMeters(*current, *requester) / 1000
	minutes := math.Round(km / e.speedKmh * 60)
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return e.defaultMinutes, false
	}
	if minutes < 0 {
		minutes = 0
	}
	return int(minutes), true
}
