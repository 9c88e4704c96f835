package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultApplianceCount is the number of outputs every controller exposes.
const DefaultApplianceCount = 4

// ApplianceState is the switched state of one output.
type ApplianceState string

const (
	ApplianceOn  ApplianceState = "on"
	ApplianceOff ApplianceState = "off"
)

// ParseApplianceState accepts only "on" and "off".
func ParseApplianceState(s string) (ApplianceState, bool) {
	switch ApplianceState(s) {
	case ApplianceOn, ApplianceOff:
		return ApplianceState(s), true
	}
	return "", false
}

// Appliance is one switchable output of a device.
// Slot is the 1-based output index on the controller.
type Appliance struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	DeviceID        string         `gorm:"size:36;not null;uniqueIndex:idx_appliance_device_slot" json:"deviceId"`
	Slot            int            `gorm:"not null;uniqueIndex:idx_appliance_device_slot" json:"slot"`
	Name            string         `gorm:"size:128;not null" json:"name"`
	State           ApplianceState `gorm:"size:8;not null;default:off" json:"state"`
	LastStateChange time.Time      `gorm:"not null" json:"lastStateChange"`
	CreatedAt       time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updatedAt"`
}

func (a *Appliance) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// DefaultAppliances builds the outputs provisioned for a device that has none.
func DefaultAppliances(deviceID string, now time.Time) []Appliance {
	out := make([]Appliance, 0, DefaultApplianceCount)
	for slot := 1; slot <= DefaultApplianceCount; slot++ {
		out = append(out, Appliance{
			ID:              newID(),
			DeviceID:        deviceID,
			Slot:            slot,
			Name:            fmt.Sprintf("Appliance %d", slot),
			State:           ApplianceOff,
			LastStateChange: now,
		})
	}
	return out
}
