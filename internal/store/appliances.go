package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smarthome-backend/internal/model"
)

// ensureDefaults inserts the default appliances for a device that has none
// and returns the device's appliances ordered by slot.
func ensureDefaults(tx *gorm.DB, deviceID string, now time.Time) ([]model.Appliance, error) {
	var count int64
	if err := tx.Model(&model.Appliance{}).Where("device_id = ?", deviceID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		defaults := model.DefaultAppliances(deviceID, now)
		// A concurrent caller may have inserted the same slots.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
			return nil, fmt.Errorf("failed to create default appliances for device %s: %w", deviceID, err)
		}
	}

	apps := []model.Appliance{}
	if err := tx.Where("device_id = ?", deviceID).Order("slot").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// EnsureDefaultAppliances returns the device's appliances, creating the
// defaults first when it has none.
func (s *gormStore) EnsureDefaultAppliances(ctx context.Context, deviceID string) ([]model.Appliance, error) {
	var apps []model.Appliance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Device{}).Where("id = ?", deviceID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		var err error
		apps, err = ensureDefaults(tx, deviceID, time.Now().UTC())
		return err
	})
	return apps, err
}

func (s *gormStore) ListAppliancesByRoom(ctx context.Context, roomID string) ([]model.Appliance, error) {
	apps := []model.Appliance{}
	err := s.db.WithContext(ctx).
		Joins("JOIN devices ON devices.id = appliances.device_id").
		Where("devices.room_id = ?", roomID).
		Order("appliances.device_id, appliances.slot").
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// GetAppliance returns an appliance together with the device it belongs to.
func (s *gormStore) GetAppliance(ctx context.Context, applianceID string) (*model.Appliance, *model.Device, error) {
	var app model.Appliance
	if err := s.db.WithContext(ctx).First(&app, "id = ?", applianceID).Error; err != nil {
		return nil, nil, notFound(err)
	}
	var device model.Device
	if err := s.db.WithContext(ctx).First(&device, "id = ?", app.DeviceID).Error; err != nil {
		return nil, nil, notFound(err)
	}
	return &app, &device, nil
}

// UpdateApplianceState switches an appliance. Turning an appliance on
// requires its device to be active or on, otherwise ErrInvalidState.
func (s *gormStore) UpdateApplianceState(ctx context.Context, applianceID string, state model.ApplianceState, now time.Time) (*model.Appliance, error) {
	var app model.Appliance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", applianceID).Error; err != nil {
			return notFound(err)
		}
		var device model.Device
		if err := tx.Select("id", "status").First(&device, "id = ?", app.DeviceID).Error; err != nil {
			return notFound(err)
		}
		if state == model.ApplianceOn && !device.Status.PowersAppliances() {
			return ErrInvalidState
		}
		if app.State == state {
			return nil
		}

		if err := tx.Model(&app).Updates(map[string]any{
			"state":             state,
			"last_state_change": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update appliance %s: %w", app.ID, err)
		}
		app.State = state
		app.LastStateChange = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *gormStore) RenameAppliance(ctx context.Context, applianceID, name string) (*model.Appliance, error) {
	res := s.db.WithContext(ctx).Model(&model.Appliance{}).Where("id = ?", applianceID).Update("name", name)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to rename appliance %s: %w", applianceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	var app model.Appliance
	if err := s.db.WithContext(ctx).First(&app, "id = ?", applianceID).Error; err != nil {
		return nil, notFound(err)
	}
	return &app, nil
}

func (s *gormStore) DeleteAppliance(ctx context.Context, applianceID string) error {
	res := s.db.WithContext(ctx).Where("id = ?", applianceID).Delete(&model.Appliance{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete appliance %s: %w", applianceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportApplianceStates records the physical state a device reports for its slots.
// Unknown slots are ignored.
func (s *gormStore) ReportApplianceStates(ctx context.Context, deviceID string, states map[int]model.ApplianceState, now time.Time) ([]model.Appliance, error) {
	var apps []model.Appliance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := ensureDefaults(tx, deviceID, now)
		if err != nil {
			return err
		}
		for i := range current {
			state, ok := states[current[i].Slot]
			if !ok || current[i].State == state {
				continue
			}
			if err := tx.Model(&current[i]).Updates(map[string]any{
				"state":             state,
				"last_state_change": now,
			}).Error; err != nil {
				return fmt.Errorf("failed to record slot %d of device %s: %w", current[i].Slot, deviceID, err)
			}
			current[i].State = state
			current[i].LastStateChange = now
		}
		apps = current
		return nil
	})
	return apps, err
}
