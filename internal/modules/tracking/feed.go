package tracking

import (
	"context"
	"math"
	"math/rand"
	"time"

	"firstcall/internal/models"
)

// FeedSession identifies the session a vehicle feed is bound to.
type FeedSession struct {
	SessionID string
	VehicleID string
	// Requester returns the latest requester position, if any. It is safe to
	// call from the feed's goroutine.
	Requester func() (models.Coordinate, bool)
}

// VehicleFeed produces the responding vehicle's coordinates for a session
// until ctx is cancelled. Implementations close the channel on return.
type VehicleFeed interface {
	Observe(ctx context.Context, session FeedSession) <-chan models.VehicleFix
}

// SimulatedFeed stands in for a dispatch backend. Every interval it moves the
// vehicle by a bounded random step biased toward the requester.
type SimulatedFeed struct {
	interval time.Duration
	jitter   float64
	drift    float64
	seed     int64
	now      func() time.Time
}

// NewSimulatedFeed creates a simulated feed. jitter bounds the per-axis step
// in degrees; drift is the fraction of the remaining per-axis distance
// covered each tick. A zero seed seeds from the clock.
func NewSimulatedFeed(interval time.Duration, jitter, drift float64, seed int64) *SimulatedFeed {
	return &SimulatedFeed{
		interval: interval,
		jitter:   jitter,
		drift:    drift,
		seed:     seed,
		now:      time.Now,
	}
}

// Observe ticks every interval once a requester position is known; the first
// coordinate is placed near the requester.
func (f *SimulatedFeed) Observe(ctx context.Context, session FeedSession) <-chan models.VehicleFix {
	out := make(chan models.VehicleFix, 1)
	seed := f.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	go func() {
		defer close(out)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		var prev *models.Coordinate
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			requester, ok := session.Requester()
			if !ok {
				continue
			}
			next := f.Next(rng, prev, requester)
			prev = &next
			if !send(ctx, out, models.VehicleFix{Coordinate: next}) {
				return
			}
		}
	}()
	return out
}

// Next computes the coordinate following prev. Without prev it seeds at the
// requester position plus jitter. Each axis moves by at most the jitter bound.
func (f *SimulatedFeed) Next(rng *rand.Rand, prev *models.Coordinate, requester models.Coordinate) models.Coordinate {
	if prev == nil {
		return models.Coordinate{
			Latitude:   requester.Latitude + (rng.Float64()*2-1)*f.jitter,
			Longitude:  requester.Longitude + (rng.Float64()*2-1)*f.jitter,
			ObservedAt: f.now(),
		}
	}
	at := f.now()
	if at.Before(prev.ObservedAt) {
		at = prev.ObservedAt
	}
	return models.Coordinate{
		Latitude:   prev.Latitude + f.step(rng, requester.Latitude-prev.Latitude),
		Longitude:  prev.Longitude + f.step(rng, requester.Longitude-prev.Longitude),
		ObservedAt: at,
	}
}

// step moves drift of the remaining distance plus noise that shrinks as the
// vehicle closes in, clamped to the jitter bound.
func (f *SimulatedFeed) step(rng *rand.Rand, remaining float64) float64 {
	noise := 0.5 * (1 - f.drift) * math.Min(f.jitter, math.Abs(remaining))
	d := f.drift*remaining + (rng.Float64()*2-1)*noise
	return math.Max(-f.jitter, math.Min(f.jitter, d))
}
