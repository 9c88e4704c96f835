package store

import (
	"time"

	"smarthome-backend/internal/model"
)

// Invite is an invite code together with its expiry.
type Invite struct {
	Code      string
	ExpiresAt time.Time
}

// RoomDetails is the admin view of a room.
type RoomDetails struct {
	Room         model.Room
	AdminEmails  []string
	MemberEmails []string
	Devices      []model.Device
}

// RecipeFilter narrows ListRecipes. Empty fields match everything.
type RecipeFilter struct {
	UserID string
	Tag    string
}

// SweepResult counts what a SweepExpired pass removed.
type SweepResult struct {
	PendingDevices int64
	Invites        int64
}
