package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"firstcall/internal/models"
)

// DevicePlatform is a Platform fed by the tracking view: the mobile client
// reports fixes, failures and the permission prompt outcome to the service and
// the platform relays them to its watchers.
type DevicePlatform struct {
	mu         sync.Mutex
	granted    bool
	maxFixAge  time.Duration
	latest     *models.Coordinate
	receivedAt time.Time
	waiters    []chan models.Fix
	watchers   map[int]func(models.Coordinate, error)
	nextID     int
	now        func() time.Time
}

// NewDevicePlatform creates a platform. A reported fix is handed out as the
// current fix for maxFixAge after it was received.
func NewDevicePlatform(granted bool, maxFixAge time.Duration) *DevicePlatform {
	return &DevicePlatform{
		granted:   granted,
		maxFixAge: maxFixAge,
		watchers:  make(map[int]func(models.Coordinate, error)),
		now:       time.Now,
	}
}

// SetPermission records the outcome of the device permission prompt.
func (p *DevicePlatform) SetPermission(granted bool) {
	p.mu.Lock()
	p.granted = granted
	p.mu.Unlock()
}

// Report delivers a device fix. A zero ObservedAt is stamped with the
// receive time.
func (p *DevicePlatform) Report(c models.Coordinate) {
	p.mu.Lock()
	now := p.now()
	if c.ObservedAt.IsZero() {
		c.ObservedAt = now
	}
	p.latest = &c
	p.receivedAt = now
	waiters := p.waiters
	p.waiters = nil
	watchers := p.snapshotWatchers()
	p.mu.Unlock()

	for _, w := range waiters {
		w <- models.Fix{Coordinate: c}
	}
	for _, fn := range watchers {
		fn(c, nil)
	}
}

// ReportFailure relays a platform-level positioning failure.
func (p *DevicePlatform) ReportFailure(reason string) {
	err := errors.New(reason)
	p.mu.Lock()
	p.latest = nil
	waiters := p.waiters
	p.waiters = nil
	watchers := p.snapshotWatchers()
	p.mu.Unlock()

	for _, w := range waiters {
		w <- models.Fix{Err: err}
	}
	for _, fn := range watchers {
		fn(models.Coordinate{}, err)
	}
}

func (p *DevicePlatform) snapshotWatchers() []func(models.Coordinate, error) {
	fns := make([]func(models.Coordinate, error), 0, len(p.watchers))
	for id := 0; id < p.nextID; id++ {
		if fn, ok := p.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// RequestPermission returns the last reported permission outcome.
func (p *DevicePlatform) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted, nil
}

// CurrentFix returns the latest fix if it is recent enough, otherwise waits
// for the next report.
func (p *DevicePlatform) CurrentFix(ctx context.Context) (models.Coordinate, error) {
	p.mu.Lock()
	if p.latest != nil && p.now().Sub(p.receivedAt) <= p.maxFixAge {
		c := *p.latest
		p.mu.Unlock()
		return c, nil
	}
	w := make(chan models.Fix, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case f := <-w:
		return f.Coordinate, f.Err
	case <-ctx.Done():
		p.dropWaiter(w)
		return models.Coordinate{}, ctx.Err()
	}
}

func (p *DevicePlatform) dropWaiter(w chan models.Fix) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, x := range p.waiters {
		if x == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

// Watch registers fn for subsequent reports.
func (p *DevicePlatform) Watch(fn func(models.Coordinate, error)) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = fn
	return &deviceSubscription{platform: p, id: id}, nil
}

type deviceSubscription struct {
	platform *DevicePlatform
	id       int
	once     sync.Once
}

func (s *deviceSubscription) Cancel() {
	s.once.Do(func() {
		s.platform.mu.Lock()
		delete(s.platform.watchers, s.id)
		s.platform.mu.Unlock()
	})
}
