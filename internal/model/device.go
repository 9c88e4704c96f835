package model

import (
	"time"

	"gorm.io/gorm"
)

// DeviceStatus is the lifecycle state of a controller.
//
// A device starts pending and becomes active once it fetches its network
// credentials. After that an admin switches it between on and off.
type DeviceStatus string

const (
	DeviceStatusPending DeviceStatus = "pending"
	DeviceStatusActive  DeviceStatus = "active"
	DeviceStatusOn      DeviceStatus = "on"
	DeviceStatusOff     DeviceStatus = "off"
)

// Provisioned reports whether the device has completed the handshake.
func (s DeviceStatus) Provisioned() bool {
	switch s {
	case DeviceStatusActive, DeviceStatusOn, DeviceStatusOff:
		return true
	}
	return false
}

// PowersAppliances reports whether appliances on the device may be switched on.
func (s DeviceStatus) PowersAppliances() bool {
	return s == DeviceStatusActive || s == DeviceStatusOn
}

// Toggled returns the status an admin toggle moves to.
// ok is false for devices that have not been provisioned.
func (s DeviceStatus) Toggled() (next DeviceStatus, ok bool) {
	switch s {
	case DeviceStatusActive, DeviceStatusOn:
		return DeviceStatusOff, true
	case DeviceStatusOff:
		return DeviceStatusOn, true
	}
	return s, false
}

// Device is an ESP32-class controller identified by its MAC address.
type Device struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	RoomID         string       `gorm:"size:36;index;not null" json:"roomId"`
	Name           string       `gorm:"size:128;not null" json:"name"`
	MACAddress     string       `gorm:"column:mac_address;uniqueIndex;size:17;not null" json:"macAddress"`
	SSID           string       `gorm:"column:ssid;size:64" json:"ssid"`
	SealedPassword []byte       `json:"-"`
	SecretHash     string       `gorm:"size:255;not null" json:"-"`
	Status         DeviceStatus `gorm:"size:16;not null;default:pending" json:"status"`
	ConfirmedAt    *time.Time   `json:"confirmedAt"`
	CreatedAt      time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updatedAt"`

	// Associations
	Appliances []Appliance `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE" json:"appliances,omitempty"`
}

func (d *Device) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
