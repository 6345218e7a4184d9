package store

import (
	"context"

	"github.com/samrato/QMMMUST/internal/models"
)

func (s *Store) CreateDevice(ctx context.Context, device *models.Device) error {
	return wrap(s.conn(ctx).Create(device).Error)
}

// FindDeviceByTag resolves a scanned tag to its device with the owner loaded.
func (s *Store) FindDeviceByTag(ctx context.Context, tag string) (*models.Device, error) {
	var device models.Device
	if err := s.conn(ctx).
		Preload("Identity").
		Where("rfid_tag = ?", models.NormalizeTag(tag)).
		First(&device).Error; err != nil {
		return nil, wrap(err)
	}
	return &device, nil
}

// FindOwnedDevice returns ErrNotFound both for a missing device and one owned by someone else.
func (s *Store) FindOwnedDevice(ctx context.Context, id, identityID uint) (*models.Device, error) {
	var device models.Device
	if err := s.conn(ctx).
		Preload("Identity").
		Where("id = ? AND identity_id = ?", id, identityID).
		First(&device).Error; err != nil {
		return nil, wrap(err)
	}
	return &device, nil
}

func (s *Store) ListDevices(ctx context.Context, identityID uint) ([]models.Device, error) {
	var devices []models.Device
	if err := s.conn(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Find(&devices).Error; err != nil {
		return nil, wrap(err)
	}
	return devices, nil
}

func (s *Store) DeleteDevice(ctx context.Context, id, identityID uint) error {
	res := s.conn(ctx).
		Where("id = ? AND identity_id = ?", id, identityID).
		Delete(&models.Device{})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountDevices(ctx context.Context) (int64, error) {
	var n int64
	return n, wrap(s.conn(ctx).Model(&models.Device{}).Count(&n).Error)
}
