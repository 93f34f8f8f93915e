package models

import "time"

// Coordinate is a single timestamped position fix.
type Coordinate struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
}

// SessionStatus is the lifecycle state of a dispatch session.
type SessionStatus string

const (
	StatusRequested SessionStatus = "requested"
	StatusEnRoute   SessionStatus = "en_route"
	StatusArrived   SessionStatus = "arrived"
	StatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further updates are accepted in this status.
func (s SessionStatus) Terminal() bool {
	return s == StatusArrived || s == StatusCancelled
}

// GPSState classifies the health of the requester's positioning signal.
type GPSState string

const (
	GPSActive     GPSState = "active"
	GPSLost       GPSState = "lost"
	GPSRecovering GPSState = "recovering"
)

// Driver is the static record of the responding crew, fixed at session creation.
type Driver struct {
	Name                  string `json:"name" mapstructure:"name" validate:"required"`
	Phone                 string `json:"phone" mapstructure:"phone" validate:"required"`
	VehicleID             string `json:"vehicle_id" mapstructure:"vehicle_id" validate:"required"`
	OriginFacilityName    string `json:"origin_facility_name" mapstructure:"origin_facility_name"`
	OriginFacilityAddress string `json:"origin_facility_address" mapstructure:"origin_facility_address"`
}

// Fix is one element of a requester position sequence: either a coordinate or
// the error that terminated the sequence.
type Fix struct {
	Coordinate Coordinate
	Err        error
}

// VehicleFix is one element of a vehicle feed. A non-nil Err marks a feed
// failure; the feed keeps running and may deliver coordinates afterwards.
type VehicleFix struct {
	Coordinate Coordinate
	Err        error
}

// Snapshot is the consolidated, read-only view of a session handed to display
// consumers. Position pointers are never shared between snapshots.
type Snapshot struct {
	SessionID         string        `json:"session_id"`
	TrackingViewID    string        `json:"tracking_view_id"`
	Sequence          uint64        `json:"sequence"`
	Status            SessionStatus `json:"status"`
	RequesterPosition *Coordinate   `json:"requester_position,omitempty"`
	VehiclePosition   *Coordinate   `json:"vehicle_position,omitempty"`
	Driver            Driver        `json:"driver"`
	ETAMinutes        int           `json:"eta_minutes"`
	ETAEstimated      bool          `json:"eta_estimated"` // false while the default ETA is shown
	GPSState          GPSState      `json:"gps_state"`
	PermissionDenied  bool          `json:"permission_denied"`
	VehicleFeedStale  bool          `json:"vehicle_feed_stale"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
