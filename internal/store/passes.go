package store

import (
	"context"
	"time"

	"github.com/samrato/QMMMUST/internal/models"
)

func (s *Store) CreatePass(ctx context.Context, pass *models.GatePass) error {
	return wrap(s.conn(ctx).Create(pass).Error)
}

// LatestPassForDevice returns the most recently issued pass. Older passes are superseded.
func (s *Store) LatestPassForDevice(ctx context.Context, deviceID uint) (*models.GatePass, error) {
	var pass models.GatePass
	if err := s.conn(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC, id DESC").
		First(&pass).Error; err != nil {
		return nil, wrap(err)
	}
	return &pass, nil
}

// ClaimPass marks the pass consumed if nobody else has. It reports whether this call won.
func (s *Store) ClaimPass(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.GatePass{}).
		Where("id = ? AND consumed_at IS NULL", id).
		UpdateColumn("consumed_at", at.UTC())
	if res.Error != nil {
		return false, wrap(res.Error)
	}
	return res.RowsAffected == 1, nil
}
