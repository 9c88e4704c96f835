package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is the authority a user holds within their room.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is an admin or member account bound to exactly one room.
type User struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Email              string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username           string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash       string    `gorm:"size:255;not null" json:"-"`
	Role               Role      `gorm:"size:16;not null" json:"role"`
	RoomID             string    `gorm:"size:36;index;not null" json:"roomId"`
	SecurityQuestion   string    `gorm:"size:255" json:"securityQuestion,omitempty"`
	SecurityAnswerHash string    `gorm:"size:255" json:"-"`
	CreatedAt          time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"not null" json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// IsAdminOf reports whether the user administers the given room.
func (u *User) IsAdminOf(roomID string) bool {
	return u.Role == RoleAdmin && u.RoomID == roomID
}

// BelongsTo reports whether the user is an admin or member of the given room.
func (u *User) BelongsTo(roomID string) bool {
	return u.RoomID == roomID
}
