package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/samrato/QMMMUST/internal/models"
)

type AlertFilter struct {
	Status     models.AlertStatus
	IdentityID uint
	From       *time.Time
	To         *time.Time
	Page
}

func (s *Store) CreateAlert(ctx context.Context, alert *models.Alert) error {
	return wrap(s.conn(ctx).Create(alert).Error)
}

func (s *Store) FindAlert(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := s.conn(ctx).
		Preload("Identity").
		Preload("Device").
		First(&alert, id).Error; err != nil {
		return nil, wrap(err)
	}
	return &alert, nil
}

// MarkAlertDelivered is idempotent: an already delivered alert keeps its first sent_at.
func (s *Store) MarkAlertDelivered(ctx context.Context, id uint, at time.Time) error {
	res := s.conn(ctx).Model(&models.Alert{}).
		Where("id = ? AND is_sent = ?", id, false).
		UpdateColumns(map[string]any{
			"is_sent":      true,
			"sent_at":      at.UTC(),
			"abandoned_at": nil,
			"last_error":   "",
		})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.alertExists(ctx, id)
	}
	return nil
}

func (s *Store) RecordAlertFailure(ctx context.Context, id uint, reason string) error {
	res := s.conn(ctx).Model(&models.Alert{}).
		Where("id = ? AND is_sent = ?", id, false).
		UpdateColumns(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.alertExists(ctx, id)
	}
	return nil
}

func (s *Store) AbandonAlert(ctx context.Context, id uint, at time.Time) error {
	res := s.conn(ctx).Model(&models.Alert{}).
		Where("id = ? AND is_sent = ? AND abandoned_at IS NULL", id, false).
		UpdateColumn("abandoned_at", at.UTC())
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.alertExists(ctx, id)
	}
	return nil
}

func (s *Store) alertExists(ctx context.Context, id uint) error {
	var n int64
	if err := s.conn(ctx).Model(&models.Alert{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return wrap(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingAlerts returns undelivered, non-abandoned alerts, oldest first.
func (s *Store) PendingAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var alerts []models.Alert
	if err := pending(s.conn(ctx)).
		Preload("Identity").
		Preload("Device").
		Order("id ASC").
		Limit(limit).
		Find(&alerts).Error; err != nil {
		return nil, wrap(err)
	}
	return alerts, nil
}

func pending(q *gorm.DB) *gorm.DB {
	return q.Where("is_sent = ? AND abandoned_at IS NULL", false)
}

func (s *Store) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, int64, error) {
	page := f.Page.Normalized()

	q := s.conn(ctx).Model(&models.Alert{})
	switch f.Status {
	case models.AlertPending:
		q = pending(q)
	case models.AlertDelivered:
		q = q.Where("is_sent = ?", true)
	case models.AlertAbandoned:
		q = q.Where("is_sent = ? AND abandoned_at IS NOT NULL", false)
	}
	if f.IdentityID != 0 {
		q = q.Where("identity_id = ?", f.IdentityID)
	}
	q = between(q, "created_at", f.From, f.To)

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap(err)
	}

	var alerts []models.Alert
	if err := q.Preload("Identity").
		Preload("Device").
		Order("created_at DESC, id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&alerts).Error; err != nil {
		return nil, 0, wrap(err)
	}
	return alerts, total, nil
}

func (s *Store) CountPendingAlerts(ctx context.Context) (int64, error) {
	var n int64
	return n, wrap(pending(s.conn(ctx).Model(&models.Alert{})).Count(&n).Error)
}
