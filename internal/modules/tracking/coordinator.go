// Package tracking implements the live tracking coordinator: it merges the
// requester's device position and the responding vehicle's feed into one
// dispatch session, watches GPS signal health and keeps a displayable ETA.
package tracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"firstcall/internal/models"

	"github.com/labstack/gommon/log"
)

// Config tunes a Coordinator.
type Config struct {
	StaleAfter             time.Duration
	HealthCheckInterval    time.Duration
	ArrivalThresholdMeters float64
	ArrivalConsecutive     int
}

type commandKind int

const (
	cmdCancel commandKind = iota
	cmdRecover
)

type command struct {
	kind  commandKind
	reply chan error
}

// update is one input to the per-tick pipeline. Both fields nil means a
// health check tick.
type update struct {
	requester *models.Fix
	vehicle   *models.VehicleFix
}

// Coordinator owns one DispatchSession. All session mutation happens on the
// goroutine started by Start; other goroutines interact through commands and
// the snapshot channel.
type Coordinator struct {
	cfg       Config
	source    PositionSource
	feed      VehicleFeed
	estimator *Estimator
	monitor   *Monitor
	logger    *log.Logger
	now       func() time.Time

	session   *DispatchSession
	requester atomic.Pointer[models.Coordinate]
	latest    atomic.Pointer[models.Snapshot]

	cmds      chan command
	snapshots chan models.Snapshot
	done      chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// NewCoordinator prepares a session in the requested status. Nothing runs
// until Start is called.
func NewCoordinator(cfg Config, params SessionParams, source PositionSource, feed VehicleFeed, estimator *Estimator, logger *log.Logger) *Coordinator {
	if cfg.ArrivalConsecutive < 1 {
		cfg.ArrivalConsecutive = 1
	}
	c := &Coordinator{
		cfg:       cfg,
		source:    source,
		feed:      feed,
		estimator: estimator,
		monitor:   NewMonitor(cfg.StaleAfter),
		logger:    logger,
		now:       time.Now,
		cmds:      make(chan command),
		snapshots: make(chan models.Snapshot, 16),
		done:      make(chan struct{}),
	}
	now := c.now()
	c.session = newSession(params, estimator.Default(), now)
	if c.session.Requester != nil {
		c.requester.Store(copyCoordinate(c.session.Requester))
		c.monitor.Observe(now)
	}
	initial := c.session.snapshot()
	c.latest.Store(&initial)
	return c
}

// ID returns the session identifier.
func (c *Coordinator) ID() string {
	return c.session.ID
}

// Snapshot returns the most recently produced snapshot.
func (c *Coordinator) Snapshot() models.Snapshot {
	return *c.latest.Load()
}

// Done is closed once the session has been torn down.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Start subscribes to both position sources and returns the snapshot
// channel. The first value is the creation snapshot. The channel is closed
// after the final snapshot of an arrived or cancelled session, or without a
// final snapshot when the session is dismissed through Stop or ctx.
func (c *Coordinator) Start(ctx context.Context) <-chan models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return c.snapshots
	}
	c.started = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.snapshots <- c.Snapshot()
	go c.run(runCtx)
	return c.snapshots
}

// Stop dismisses the tracking view: subscriptions, the feed timer and any
// in-flight recovery are cancelled. It waits for teardown to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-c.done
}

// Cancel moves the session to cancelled. It fails with
// models.ErrSessionTerminal once the session has ended.
func (c *Coordinator) Cancel(ctx context.Context) error {
	return c.do(ctx, cmdCancel)
}

// Recover retries positioning after a loss. It fails with
// models.ErrNotRecoverable unless the GPS state is lost.
func (c *Coordinator) Recover(ctx context.Context) error {
	return c.do(ctx, cmdRecover)
}

func (c *Coordinator) do(ctx context.Context, kind commandKind) error {
	reply := make(chan error, 1)
	select {
	case c.cmds <- command{kind: kind, reply: reply}:
		return <-reply
	case <-c.done:
		return models.ErrSessionTerminal
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) requesterPosition() (models.Coordinate, bool) {
	p := c.requester.Load()
	if p == nil {
		return models.Coordinate{}, false
	}
	return *p, true
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.snapshots)

	srcCtx, srcCancel := context.WithCancel(ctx)
	defer func() { srcCancel() }()
	requester := c.acquire(srcCtx)

	vehicle := c.feed.Observe(ctx, FeedSession{
		SessionID: c.session.ID,
		VehicleID: c.session.Driver.VehicleID,
		Requester: c.requesterPosition,
	})

	ticker := time.NewTicker(c.cfg.HealthCheckInterval)
	defer ticker.Stop()

	c.logger.Infof("session %s: tracking vehicle %s", c.session.ID, c.session.Driver.VehicleID)
	for {
		var (
			changed bool
			reply   chan error
			cmdErr  error
		)
		select {
		case <-ctx.Done():
			c.logger.Infof("session %s: dismissed", c.session.ID)
			return
		case fix, ok := <-requester:
			if !ok {
				requester = nil
				continue
			}
			changed = c.apply(update{requester: &fix})
		case fix, ok := <-vehicle:
			if !ok {
				vehicle = nil
				continue
			}
			changed = c.apply(update{vehicle: &fix})
		case <-ticker.C:
			changed = c.apply(update{})
		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdCancel:
				if !c.enRouteForCancel(ctx) {
					cmd.reply <- ctx.Err()
					return
				}
				cmdErr = c.cancelSession()
			case cmdRecover:
				if cmdErr = c.beginRecovery(); cmdErr == nil {
					srcCancel()
					srcCtx, srcCancel = context.WithCancel(ctx)
					requester = c.acquire(srcCtx)
				}
			}
			reply = cmd.reply
			changed = cmdErr == nil
		}

		// Commands are answered once their snapshot is published.
		alive := !changed || c.emit(ctx)
		if reply != nil {
			reply <- cmdErr
		}
		if !alive {
			return
		}
		if c.session.Status.Terminal() {
			c.logger.Infof("session %s: %s", c.session.ID, c.session.Status)
			return
		}
	}
}

// acquire requests access and then relays a fresh coordinate sequence. An
// access failure is delivered as a single Fix.
func (c *Coordinator) acquire(ctx context.Context) <-chan models.Fix {
	out := make(chan models.Fix, 1)
	go func() {
		defer close(out)
		if err := c.source.RequestAccess(ctx); err != nil {
			if ctx.Err() == nil {
				send(ctx, out, models.Fix{Err: err})
			}
			return
		}
		fixes := c.source.Observe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case fix, ok := <-fixes:
				if !ok || !send(ctx, out, fix) {
					return
				}
			}
		}
	}()
	return out
}

// apply runs one tick: merge, estimate, health, status. It reports whether
// the session changed.
func (c *Coordinator) apply(u update) bool {
	now := c.now()
	s := c.session

	changed := false
	switch {
	case u.requester != nil:
		changed = c.mergeRequester(*u.requester, now)
	case u.vehicle != nil:
		changed = c.mergeVehicle(*u.vehicle, now)
	}

	if c.checkVehicleFeed(now) {
		changed = true
	}

	eta, estimated := c.estimator.Estimate(s.PrevVehicle, s.Vehicle, s.Requester)
	if eta != s.ETAMinutes || estimated != s.ETAEstimated {
		changed = true
	}
	s.ETAMinutes, s.ETAEstimated = eta, estimated

	if c.monitor.Check(now) {
		c.logger.Warnf("session %s: gps signal lost, no fix for %s", s.ID, c.cfg.StaleAfter)
		changed = true
	}
	s.GPSState = c.monitor.State()

	if c.evaluateStatus(u.vehicle != nil) {
		changed = true
	}

	if changed {
		s.UpdatedAt = now
	}
	return changed
}

func (c *Coordinator) mergeRequester(fix models.Fix, now time.Time) bool {
	s := c.session
	if fix.Err != nil {
		denied := errors.Is(fix.Err, models.ErrPermissionDenied)
		changed := denied && !s.PermissionDenied
		if denied {
			s.PermissionDenied = true
		}
		if c.monitor.Fail() {
			c.logger.Warnf("session %s: positioning failed: %v", s.ID, fix.Err)
			changed = true
		}
		return changed
	}

	if s.Requester != nil && fix.Coordinate.ObservedAt.Before(s.Requester.ObservedAt) {
		return false
	}
	coord := fix.Coordinate
	s.Requester = &coord
	c.requester.Store(copyCoordinate(&coord))
	s.PermissionDenied = false
	if c.monitor.Observe(now) {
		c.logger.Infof("session %s: gps signal active", s.ID)
	}
	return true
}

func (c *Coordinator) mergeVehicle(fix models.VehicleFix, now time.Time) bool {
	s := c.session
	if fix.Err != nil {
		if s.VehicleFeedStale {
			return false
		}
		s.VehicleFeedStale = true
		return true
	}

	if s.Vehicle != nil && fix.Coordinate.ObservedAt.Before(s.Vehicle.ObservedAt) {
		return false
	}
	coord := fix.Coordinate
	s.PrevVehicle, s.Vehicle = s.Vehicle, &coord
	s.lastVehicleAt = now
	if s.VehicleFeedStale {
		c.logger.Infof("session %s: vehicle feed resumed", s.ID)
	}
	s.VehicleFeedStale = false

	if s.Requester != nil && DistanceMeters(coord, *s.Requester) < c.cfg.ArrivalThresholdMeters {
		s.nearStreak++
	} else {
		s.nearStreak = 0
	}
	return true
}

// checkVehicleFeed flags a vehicle feed that has gone quiet for staleAfter
// since its last fix. It reports true once per episode.
func (c *Coordinator) checkVehicleFeed(now time.Time) bool {
	s := c.session
	if s.VehicleFeedStale || s.lastVehicleAt.IsZero() {
		return false
	}
	if now.Sub(s.lastVehicleAt) < c.cfg.StaleAfter {
		return false
	}
	s.VehicleFeedStale = true
	c.logger.Warnf("session %s: no vehicle fix for %s", s.ID, c.cfg.StaleAfter)
	return true
}

// evaluateStatus advances the session. Arrival is only decided on a vehicle
// update.
func (c *Coordinator) evaluateStatus(vehicleUpdate bool) bool {
	s := c.session
	switch s.Status {
	case models.StatusRequested:
		if s.Vehicle != nil {
			return s.advance(models.StatusEnRoute)
		}
	case models.StatusEnRoute:
		if vehicleUpdate && s.nearStreak >= c.cfg.ArrivalConsecutive {
			return s.advance(models.StatusArrived)
		}
	}
	return false
}

// enRouteForCancel moves a requested session to en_route and publishes that
// snapshot, so a cancellation always leaves from en_route. It returns false
// if the session was dismissed meanwhile.
func (c *Coordinator) enRouteForCancel(ctx context.Context) bool {
	if !c.session.advance(models.StatusEnRoute) {
		return true
	}
	c.session.UpdatedAt = c.now()
	return c.emit(ctx)
}

func (c *Coordinator) cancelSession() error {
	if !c.session.advance(models.StatusCancelled) {
		return models.ErrSessionTerminal
	}
	c.session.UpdatedAt = c.now()
	return nil
}

func (c *Coordinator) beginRecovery() error {
	now := c.now()
	if !c.monitor.RequestRecovery(now) {
		return models.ErrNotRecoverable
	}
	c.session.GPSState = c.monitor.State()
	c.session.UpdatedAt = now
	c.logger.Infof("session %s: retrying positioning", c.session.ID)
	return nil
}

func (c *Coordinator) emit(ctx context.Context) bool {
	snap := c.session.snapshot()
	c.latest.Store(&snap)
	select {
	case c.snapshots <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
