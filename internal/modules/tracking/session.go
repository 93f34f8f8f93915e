package tracking

import (
	"time"

	"firstcall/internal/models"
)

// transitions lists the statuses reachable from each status.
var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.StatusRequested: {models.StatusEnRoute},
	models.StatusEnRoute:   {models.StatusArrived, models.StatusCancelled},
}

// CanTransition reports whether a session may move directly from one status to another.
func CanTransition(from, to models.SessionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SessionParams describes a session at creation.
type SessionParams struct {
	ID             string
	TrackingViewID string
	Driver         models.Driver
	Requester      *models.Coordinate
}

// DispatchSession is the tracking state of one emergency request. It is owned
// and mutated by a single Coordinator goroutine.
type DispatchSession struct {
	ID               string
	TrackingViewID   string
	Status           models.SessionStatus
	Requester        *models.Coordinate
	Vehicle          *models.Coordinate
	PrevVehicle      *models.Coordinate
	Driver           models.Driver
	ETAMinutes       int
	ETAEstimated     bool
	GPSState         models.GPSState
	PermissionDenied bool
	VehicleFeedStale bool
	UpdatedAt        time.Time

	nearStreak    int
	lastVehicleAt time.Time
	sequence      uint64
}

func newSession(params SessionParams, etaDefault int, now time.Time) *DispatchSession {
	s := &DispatchSession{
		ID:             params.ID,
		TrackingViewID: params.TrackingViewID,
		Status:         models.StatusRequested,
		Driver:         params.Driver,
		ETAMinutes:     etaDefault,
		GPSState:       models.GPSActive,
		UpdatedAt:      now,
	}
	if params.Requester != nil {
		c := *params.Requester
		s.Requester = &c
	}
	return s
}

// advance moves the session to status `to` if the state machine allows it.
func (s *DispatchSession) advance(to models.SessionStatus) bool {
	if !CanTransition(s.Status, to) {
		return false
	}
	s.Status = to
	return true
}

func (s *DispatchSession) snapshot() models.Snapshot {
	s.sequence++
	return models.Snapshot{
		SessionID:         s.ID,
		TrackingViewID:    s.TrackingViewID,
		Sequence:          s.sequence,
		Status:            s.Status,
		RequesterPosition: copyCoordinate(s.Requester),
		VehiclePosition:   copyCoordinate(s.Vehicle),
		Driver:            s.Driver,
		ETAMinutes:        s.ETAMinutes,
		ETAEstimated:      s.ETAEstimated,
		GPSState:          s.GPSState,
		PermissionDenied:  s.PermissionDenied,
		VehicleFeedStale:  s.VehicleFeedStale,
		UpdatedAt:         s.UpdatedAt,
	}
}

func copyCoordinate(c *models.Coordinate) *models.Coordinate {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
