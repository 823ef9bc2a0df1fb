package models

import "time"

// VehicleType is the transport a responder brings.
type VehicleType string

const (
	VehicleBoat       VehicleType = "BOAT"
	VehicleCanoe      VehicleType = "CANOE"
	VehicleHelicopter VehicleType = "HELICOPTER"
	VehicleTruck      VehicleType = "TRUCK"
	VehicleMotorcycle VehicleType = "MOTORCYCLE"
	VehicleOnFoot     VehicleType = "ON_FOOT"
	VehicleOther      VehicleType = "OTHER"
)

// ResponderProfile is created once when a responder registers and is only
// editable by its owner.
type ResponderProfile struct {
	// ID is the subject of the responder's identity token.
	ID                string      `gorm:"primaryKey" json:"id"`
	Name              string      `gorm:"not null" json:"name" validate:"required,max=120"`
	Phone             string      `gorm:"not null" json:"phone" validate:"required,max=40"`
	Email             string      `json:"email,omitempty" validate:"omitempty,email"`
	VehicleType       VehicleType `json:"vehicle_type,omitempty" validate:"omitempty,oneof=BOAT CANOE HELICOPTER TRUCK MOTORCYCLE ON_FOOT OTHER"`
	PassengerCapacity int         `json:"passenger_capacity,omitempty" validate:"gte=0,lte=500"`
	CreatedAt         time.Time   `json:"created_at"`
}

// ProfileUpdate holds the owner-editable profile fields. Nil fields are kept.
type ProfileUpdate struct {
	Name              *string      `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone             *string      `json:"phone,omitempty" validate:"omitempty,min=1,max=40"`
	VehicleType       *VehicleType `json:"vehicle_type,omitempty" validate:"omitempty,oneof=BOAT CANOE HELICOPTER TRUCK MOTORCYCLE ON_FOOT OTHER"`
	PassengerCapacity *int         `json:"passenger_capacity,omitempty" validate:"omitempty,gte=0,lte=500"`
}

// Apply copies the set fields onto p.
func (u ProfileUpdate) Apply(p *ResponderProfile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.VehicleType != nil {
		p.VehicleType = *u.VehicleType
	}
	if u.PassengerCapacity != nil {
		p.PassengerCapacity = *u.PassengerCapacity
	}
}
