package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firstcall/internal/models"
)

// Platform is the device positioning capability.
type Platform interface {
	// RequestPermission asks for positioning access and reports whether it was granted.
	RequestPermission(ctx context.Context) (bool, error)
	// CurrentFix blocks until the platform produces a fix or ctx ends.
	CurrentFix(ctx context.Context) (models.Coordinate, error)
	// Watch calls fn for every subsequent fix or failure until the subscription is cancelled.
	Watch(fn func(models.Coordinate, error)) (Subscription, error)
}

// Subscription is a handle on a platform watch.
type Subscription interface {
	Cancel()
}

// PositionSource produces the requester's coordinates.
type PositionSource interface {
	RequestAccess(ctx context.Context) error
	Observe(ctx context.Context) <-chan models.Fix
}

// CoordinateSource adapts a Platform into a restartable sequence of fixes.
type CoordinateSource struct {
	platform   Platform
	fixTimeout time.Duration
}

// NewCoordinateSource wraps platform. fixTimeout bounds the wait for the
// initial fix of every Observe call.
func NewCoordinateSource(platform Platform, fixTimeout time.Duration) *CoordinateSource {
	return &CoordinateSource{platform: platform, fixTimeout: fixTimeout}
}

// RequestAccess returns models.ErrPermissionDenied when the requester refused access.
func (s *CoordinateSource) RequestAccess(ctx context.Context) error {
	granted, err := s.platform.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("source.RequestAccess: %w", positioningFailure(err))
	}
	if !granted {
		return models.ErrPermissionDenied
	}
	return nil
}

// Observe starts a new sequence. The channel yields the current fix followed by
// every watched fix; on a platform failure it yields one Fix carrying
// models.ErrPositioningFailure and closes. Cancelling ctx closes it silently.
// Fixes older than the last delivered one are discarded.
func (s *CoordinateSource) Observe(ctx context.Context) <-chan models.Fix {
	out := make(chan models.Fix, 16)
	go s.run(ctx, out)
	return out
}

func (s *CoordinateSource) run(ctx context.Context, out chan<- models.Fix) {
	defer close(out)

	done := make(chan struct{})
	defer close(done)

	// Watch before asking for the current fix so nothing reported in between is lost.
	events := make(chan models.Fix, 16)
	sub, err := s.platform.Watch(func(c models.Coordinate, err error) {
		select {
		case events <- models.Fix{Coordinate: c, Err: err}:
		case <-done:
		case <-ctx.Done():
		}
	})
	if err != nil {
		send(ctx, out, models.Fix{Err: positioningFailure(err)})
		return
	}
	defer sub.Cancel()

	fixCtx, cancel := context.WithTimeout(ctx, s.fixTimeout)
	first, err := s.platform.CurrentFix(fixCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		send(ctx, out, models.Fix{Err: positioningFailure(err)})
		return
	}
	if !send(ctx, out, models.Fix{Coordinate: first}) {
		return
	}
	last := first

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Err != nil {
				send(ctx, out, models.Fix{Err: positioningFailure(ev.Err)})
				return
			}
			if ev.Coordinate.ObservedAt.Before(last.ObservedAt) || ev.Coordinate == last {
				continue
			}
			last = ev.Coordinate
			if !send(ctx, out, models.Fix{Coordinate: ev.Coordinate}) {
				return
			}
		}
	}
}

func send[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

func positioningFailure(err error) error {
	if errors.Is(err, models.ErrPositioningFailure) || errors.Is(err, models.ErrPermissionDenied) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrPositioningFailure, err)
}
