package model

import (
	"time"

	"gorm.io/gorm"
)

// Room groups the users and devices of one household.
type Room struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	InviteCode       *string    `gorm:"uniqueIndex;size:16" json:"-"`
	InviteCodeExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updatedAt"`

	// Associations
	Users   []User   `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
	Devices []Device `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"devices,omitempty"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// InviteValid reports whether code matches the room's unexpired invite code.
func (r *Room) InviteValid(code string, now time.Time) bool {
	if r.InviteCode == nil || *r.InviteCode != code {
		return false
	}
	return r.InviteCodeExpiry != nil && now.Before(*r.InviteCodeExpiry)
}
