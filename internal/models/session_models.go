package models

import "time"

// PositionRequest is a latitude/longitude pair supplied by a client.
type PositionRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// CreateSessionRequest is sent by the request intake screen once the requester
// has confirmed the emergency request.
type CreateSessionRequest struct {
	TrackingViewID    string           `json:"tracking_view_id" validate:"required"`
	VehicleID         string           `json:"vehicle_id,omitempty"`
	Driver            *Driver          `json:"driver,omitempty" validate:"omitempty"`
	Requester         *PositionRequest `json:"requester,omitempty" validate:"omitempty"`
	PermissionGranted bool             `json:"permission_granted"`
	Confirmed         bool             `json:"confirmed"`
}

// PositionReport is a device fix reported by the tracking view.
type PositionReport struct {
	Latitude   float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64   `json:"longitude" validate:"gte=-180,lte=180"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
}

// PositionFailureReport tells the service the device lost its positioning fix.
type PositionFailureReport struct {
	Reason string `json:"reason"`
}

// PermissionRequest carries the outcome of the device permission prompt.
type PermissionRequest struct {
	Granted bool `json:"granted"`
}

// RecoverRequest carries the answer to the "retry GPS?" prompt.
type RecoverRequest struct {
	Confirmed bool `json:"confirmed"`
}
