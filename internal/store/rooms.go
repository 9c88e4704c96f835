package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"smarthome-backend/internal/model"
)

// CreateRoomWithAdmin creates a room and its first admin in one transaction.
func (s *gormStore) CreateRoomWithAdmin(ctx context.Context, admin *model.User, invite Invite) (*model.Room, error) {
	room := &model.Room{InviteCode: &invite.Code, InviteCodeExpiry: &invite.ExpiresAt}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		admin.RoomID = room.ID
		admin.Role = model.RoleAdmin
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return room, nil
}

// RegisterRoomAdmin adds another admin to an existing room and rotates its invite code.
func (s *gormStore) RegisterRoomAdmin(ctx context.Context, admin *model.User, roomID string, invite Invite) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		if err := tx.Select("id").First(&room, "id = ?", roomID).Error; err != nil {
			return notFound(err)
		}
		admin.RoomID = room.ID
		admin.Role = model.RoleAdmin
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		return tx.Model(&model.Room{}).Where("id = ?", room.ID).Updates(map[string]any{
			"invite_code":        invite.Code,
			"invite_code_expiry": invite.ExpiresAt,
		}).Error
	})
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// AddMember joins a user to the room owning an unexpired invite code.
func (s *gormStore) AddMember(ctx context.Context, inviteCode string, member *model.User, now time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		if err := tx.First(&room, "invite_code = ?", inviteCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInviteInvalid
			}
			return err
		}
		if !room.InviteValid(inviteCode, now) {
			return ErrInviteInvalid
		}
		member.RoomID = room.ID
		member.Role = model.RoleMember
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to create member: %w", err)
		}
		return nil
	})
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// RemoveMember deletes a member of the room along with their push subscriptions.
// Admins cannot be removed this way.
func (s *gormStore) RemoveMember(ctx context.Context, roomID, memberID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", memberID).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of %s: %w", memberID, err)
		}
		res := tx.Where("id = ? AND room_id = ? AND role = ?", memberID, roomID, model.RoleMember).Delete(&model.User{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete member %s: %w", memberID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *gormStore) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", roomID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// RoomDetails loads a room with the emails of its users and its devices.
func (s *gormStore) RoomDetails(ctx context.Context, roomID string) (*RoomDetails, error) {
	var room model.Room
	err := s.db.WithContext(ctx).
		Preload("Users", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Devices", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&room, "id = ?", roomID).Error
	if err != nil {
		return nil, notFound(err)
	}

	details := &RoomDetails{Room: room, Devices: room.Devices, AdminEmails: []string{}, MemberEmails: []string{}}
	for _, u := range room.Users {
		if u.Role == model.RoleAdmin {
			details.AdminEmails = append(details.AdminEmails, u.Email)
		} else {
			details.MemberEmails = append(details.MemberEmails, u.Email)
		}
	}
	if details.Devices == nil {
		details.Devices = []model.Device{}
	}
	return details, nil
}

// SetInviteCode replaces the room's invite code.
func (s *gormStore) SetInviteCode(ctx context.Context, roomID string, invite Invite) error {
	res := s.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", roomID).Updates(map[string]any{
		"invite_code":        invite.Code,
		"invite_code_expiry": invite.ExpiresAt,
	})
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return ErrConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
