package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/samrato/QMMMUST/internal/models"
)

func (s *Store) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	return wrap(s.conn(ctx).Create(identity).Error)
}

func (s *Store) FindIdentity(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity
	if err := s.conn(ctx).First(&identity, id).Error; err != nil {
		return nil, wrap(err)
	}
	return &identity, nil
}

// FindIdentityByLogin matches either the registration number or the email.
func (s *Store) FindIdentityByLogin(ctx context.Context, login string) (*models.Identity, error) {
	var identity models.Identity
	if err := s.conn(ctx).
		Where("registration_number = ? OR email = ?", login, login).
		First(&identity).Error; err != nil {
		return nil, wrap(err)
	}
	return &identity, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return wrap(s.conn(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at.UTC()).Error)
}

// UpdatePasswordHash stores an already hashed password.
func (s *Store) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	res := s.conn(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash)
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListIdentities(ctx context.Context, role models.Role, page Page) ([]models.Identity, int64, error) {
	page = page.Normalized()

	q := s.conn(ctx).Model(&models.Identity{})
	if role != "" {
		q = q.Where("role = ?", role)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap(err)
	}

	var identities []models.Identity
	if err := q.Preload("Devices").
		Order("id ASC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&identities).Error; err != nil {
		return nil, 0, wrap(err)
	}
	return identities, total, nil
}

func (s *Store) CountIdentities(ctx context.Context, role models.Role) (int64, error) {
	var n int64
	q := s.conn(ctx).Model(&models.Identity{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	return n, wrap(q.Count(&n).Error)
}

func (s *Store) SetIdentityActive(ctx context.Context, id uint, active bool) (*models.Identity, error) {
	res := s.conn(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		UpdateColumn("active", active)
	if res.Error != nil {
		return nil, wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindIdentity(ctx, id)
}
