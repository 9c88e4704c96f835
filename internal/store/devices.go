package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"smarthome-backend/internal/model"
)

// RegisterDevice stores a new pending device in an existing room.
// A MAC address already present anywhere yields ErrConflict.
func (s *gormStore) RegisterDevice(ctx context.Context, device *model.Device) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Room{}).Where("id = ?", device.RoomID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		device.Status = model.DeviceStatusPending
		device.ConfirmedAt = nil
		if err := tx.Create(device).Error; err != nil {
			return fmt.Errorf("failed to create device %s: %w", device.MACAddress, err)
		}
		return nil
	})
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// ListDevicesByRoom returns the devices of a room, oldest first.
func (s *gormStore) ListDevicesByRoom(ctx context.Context, roomID string) ([]model.Device, error) {
	ok, err := s.RoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	devices := []model.Device{}
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at, id").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *gormStore) GetDevice(ctx context.Context, roomID, deviceID string) (*model.Device, error) {
	var d model.Device
	if err := s.db.WithContext(ctx).Where("room_id = ? AND id = ?", roomID, deviceID).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *gormStore) GetDeviceByID(ctx context.Context, deviceID string) (*model.Device, error) {
	var d model.Device
	if err := s.db.WithContext(ctx).First(&d, "id = ?", deviceID).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *gormStore) GetDeviceByMAC(ctx context.Context, mac string) (*model.Device, error) {
	var d model.Device
	if err := s.db.WithContext(ctx).First(&d, "mac_address = ?", mac).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *gormStore) RenameDevice(ctx context.Context, roomID, deviceID, name string) (*model.Device, error) {
	res := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("room_id = ? AND id = ?", roomID, deviceID).
		Update("name", name)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to rename device %s: %w", deviceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetDevice(ctx, roomID, deviceID)
}

// ToggleDeviceStatus switches a provisioned device between on and off.
// Switching off also switches its appliances off. Pending devices yield
// ErrInvalidState.
func (s *gormStore) ToggleDeviceStatus(ctx context.Context, roomID, deviceID string, now time.Time) (*model.Device, error) {
	var device model.Device
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ? AND id = ?", roomID, deviceID).First(&device).Error; err != nil {
			return notFound(err)
		}
		next, ok := device.Status.Toggled()
		if !ok {
			return ErrInvalidState
		}

		// Conditional on the status read above so concurrent toggles cannot both apply.
		res := tx.Model(&model.Device{}).
			Where("id = ? AND status = ?", device.ID, device.Status).
			Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("failed to update status of device %s: %w", device.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		device.Status = next

		if next.PowersAppliances() {
			return nil
		}
		err := tx.Model(&model.Appliance{}).
			Where("device_id = ? AND state = ?", device.ID, model.ApplianceOn).
			Updates(map[string]any{
				"state":             model.ApplianceOff,
				"last_state_change": now,
				"updated_at":        now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to switch off appliances of device %s: %w", device.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// ActivateDevice moves a pending device to active and provisions its default
// appliances. The second result is false when the device was already provisioned.
func (s *gormStore) ActivateDevice(ctx context.Context, deviceID string, now time.Time) (*model.Device, bool, error) {
	var (
		device    model.Device
		activated bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Device{}).
			Where("id = ? AND status = ?", deviceID, model.DeviceStatusPending).
			Updates(map[string]any{
				"status":       model.DeviceStatusActive,
				"confirmed_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to activate device %s: %w", deviceID, res.Error)
		}
		activated = res.RowsAffected == 1

		if err := tx.First(&device, "id = ?", deviceID).Error; err != nil {
			return notFound(err)
		}
		if activated {
			if _, err := ensureDefaults(tx, deviceID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &device, activated, nil
}

// DeleteDevice removes a device and its appliances.
func (s *gormStore) DeleteDevice(ctx context.Context, roomID, deviceID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var device model.Device
		if err := tx.Where("room_id = ? AND id = ?", roomID, deviceID).First(&device).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("device_id = ?", device.ID).Delete(&model.Appliance{}).Error; err != nil {
			return fmt.Errorf("failed to delete appliances of device %s: %w", device.ID, err)
		}
		if err := tx.Delete(&device).Error; err != nil {
			return fmt.Errorf("failed to delete device %s: %w", device.ID, err)
		}
		return nil
	})
}
