package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"smarthome-backend/internal/model"
)

// SweepExpired removes devices still pending since before pendingBefore and
// clears invite codes that expired before now. A zero pendingBefore keeps
// pending devices.
func (s *gormStore) SweepExpired(ctx context.Context, pendingBefore, now time.Time) (SweepResult, error) {
	var result SweepResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !pendingBefore.IsZero() {
			var ids []string
			if err := tx.Model(&model.Device{}).
				Where("status = ? AND created_at < ?", model.DeviceStatusPending, pendingBefore).
				Pluck("id", &ids).Error; err != nil {
				return fmt.Errorf("failed to find stale pending devices: %w", err)
			}
			if len(ids) > 0 {
				if err := tx.Where("device_id IN ?", ids).Delete(&model.Appliance{}).Error; err != nil {
					return fmt.Errorf("failed to delete appliances of stale devices: %w", err)
				}
				res := tx.Where("id IN ? AND status = ?", ids, model.DeviceStatusPending).Delete(&model.Device{})
				if res.Error != nil {
					return fmt.Errorf("failed to delete stale devices: %w", res.Error)
				}
				result.PendingDevices = res.RowsAffected
			}
		}

		res := tx.Model(&model.Room{}).
			Where("invite_code IS NOT NULL AND invite_code_expiry < ?", now).
			Updates(map[string]any{"invite_code": nil, "invite_code_expiry": nil})
		if res.Error != nil {
			return fmt.Errorf("failed to clear expired invites: %w", res.Error)
		}
		result.Invites = res.RowsAffected
		return nil
	})
	return result, err
}
