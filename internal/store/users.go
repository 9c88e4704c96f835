package store

import (
	"context"

	"smarthome-backend/internal/model"
)

func (s *gormStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// CountRoomUsers returns the number of admins plus members of the room.
func (s *gormStore) CountRoomUsers(ctx context.Context, roomID string) (int64, error) {
	ok, err := s.RoomExists(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("room_id = ?", roomID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *gormStore) IsRoomAdmin(ctx context.Context, userID, roomID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND room_id = ? AND role = ?", userID, roomID, model.RoleAdmin).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
