package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied is returned when the requester refused positioning access.
	ErrPermissionDenied = errors.New("positioning permission denied")

	// ErrPositioningFailure terminates a coordinate sequence when the platform
	// loses its fix or reports a hardware error.
	ErrPositioningFailure = errors.New("positioning failure")

	// ErrVehicleFeedFailure is reported when the vehicle position source is unreachable.
	ErrVehicleFeedFailure = errors.New("vehicle feed unavailable")

	// ErrSessionNotFound is returned for unknown or already torn down sessions.
	ErrSessionNotFound = errors.New("dispatch session not found")

	// ErrSessionTerminal is returned when a command targets an arrived or cancelled session.
	ErrSessionTerminal = errors.New("dispatch session has already ended")

	// ErrNotRecoverable is returned when recovery is requested while the GPS signal is not lost.
	ErrNotRecoverable = errors.New("gps signal is not lost")

	// ErrNotConfirmed is returned when the requester did not confirm the emergency request.
	ErrNotConfirmed = errors.New("request was not confirmed")

	// ErrNoAvailableVehicle is returned when no ambulance in the roster is available.
	ErrNoAvailableVehicle = errors.New("no ambulance available")
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
}
