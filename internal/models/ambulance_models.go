package models

import "time"

const (
	AmbulanceAvailable = "available"
	AmbulanceBusy      = "busy"
)

// Ambulance is a vehicle in the fleet roster together with its crew and
// origin facility.
type Ambulance struct {
	VehicleID       string    `json:"vehicle_id" mapstructure:"vehicle_id" validate:"required"`
	DriverName      string    `json:"driver_name" mapstructure:"driver_name" validate:"required"`
	DriverPhone     string    `json:"driver_phone" mapstructure:"driver_phone" validate:"required"`
	FacilityName    string    `json:"facility_name" mapstructure:"facility_name"`
	FacilityAddress string    `json:"facility_address" mapstructure:"facility_address"`
	FacilityEmail   string    `json:"facility_email,omitempty" mapstructure:"facility_email" validate:"omitempty,email"`
	Status          string    `json:"status" mapstructure:"status" validate:"omitempty,oneof=available busy"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Driver returns the session driver record for this ambulance.
func (a *Ambulance) Driver() Driver {
	return Driver{
		Name:                  a.DriverName,
		Phone:                 a.DriverPhone,
		VehicleID:             a.VehicleID,
		OriginFacilityName:    a.FacilityName,
		OriginFacilityAddress: a.FacilityAddress,
	}
}

// AmbulanceStatusUpdateRequest contains the new status for a fleet vehicle.
type AmbulanceStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=available busy"`
}
