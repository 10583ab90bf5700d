package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
)

// DeviceStore is the typed access path for push token registrations.
type DeviceStore struct {
	db *gorm.DB
}

func NewDeviceStore(db *gorm.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

// Upsert registers a token for the user. A token already registered,
// possibly under another account on a shared device, is reassigned.
func (s *DeviceStore) Upsert(ctx context.Context, device *models.Device) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
		}).
		Create(device).Error
	if err != nil {
		return fmt.Errorf("deviceStore.Upsert: %w", err)
	}
	return nil
}

// Refresh swaps a rotated token in place.
func (s *DeviceStore) Refresh(ctx context.Context, oldToken, newToken string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Device{}).
		Where("token = ?", oldToken).
		Update("token", newToken)
	if result.Error != nil {
		return false, fmt.Errorf("deviceStore.Refresh: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *DeviceStore) ListForUser(ctx context.Context, userID string) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("deviceStore.ListForUser: %w", err)
	}
	return devices, nil
}

// DeleteByToken drops a registration, typically on sign-out.
func (s *DeviceStore) DeleteByToken(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.Device{}).Error
	if err != nil {
		return fmt.Errorf("deviceStore.DeleteByToken: %w", err)
	}
	return nil
}
