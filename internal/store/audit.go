package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/samrato/QMMMUST/internal/models"
)

type MovementFilter struct {
	Status     models.MovementStatus
	IdentityID uint
	GateName   string
	From       *time.Time
	To         *time.Time
	Page
}

type FailedAttemptFilter struct {
	Reason models.FailureReason
	From   *time.Time
	To     *time.Time
	Page
}

func (s *Store) CreateMovement(ctx context.Context, movement *models.Movement) error {
	return wrap(s.conn(ctx).Create(movement).Error)
}

func (s *Store) CreateFailedAttempt(ctx context.Context, attempt *models.FailedAttempt) error {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}
	attempt.AttemptedAt = attempt.AttemptedAt.UTC()
	return wrap(s.conn(ctx).Create(attempt).Error)
}

func (s *Store) ListMovements(ctx context.Context, f MovementFilter) ([]models.Movement, int64, error) {
	page := f.Page.Normalized()

	q := s.conn(ctx).Model(&models.Movement{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.IdentityID != 0 {
		q = q.Where("identity_id = ?", f.IdentityID)
	}
	if f.GateName != "" {
		q = q.Where("gate_name = ?", f.GateName)
	}
	q = between(q, "created_at", f.From, f.To)

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap(err)
	}

	var movements []models.Movement
	if err := q.Preload("Identity").
		Preload("Device").
		Order("created_at DESC, id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&movements).Error; err != nil {
		return nil, 0, wrap(err)
	}
	return movements, total, nil
}

func (s *Store) ListFailedAttempts(ctx context.Context, f FailedAttemptFilter) ([]models.FailedAttempt, int64, error) {
	page := f.Page.Normalized()

	q := s.conn(ctx).Model(&models.FailedAttempt{})
	if f.Reason != "" {
		q = q.Where("reason = ?", f.Reason)
	}
	q = between(q, "attempted_at", f.From, f.To)

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap(err)
	}

	var attempts []models.FailedAttempt
	if err := q.Preload("Device").
		Order("attempted_at DESC, id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&attempts).Error; err != nil {
		return nil, 0, wrap(err)
	}
	return attempts, total, nil
}

func (s *Store) CountMovements(ctx context.Context) (int64, error) {
	var n int64
	return n, wrap(s.conn(ctx).Model(&models.Movement{}).Count(&n).Error)
}

func (s *Store) CountFailedAttempts(ctx context.Context) (int64, error) {
	var n int64
	return n, wrap(s.conn(ctx).Model(&models.FailedAttempt{}).Count(&n).Error)
}

// MovementTimes returns creation times of approved movements in [from, to], oldest first.
func (s *Store) MovementTimes(ctx context.Context, gateName string, from, to time.Time) ([]time.Time, error) {
	q := s.conn(ctx).Model(&models.Movement{}).
		Where("status = ? AND created_at BETWEEN ? AND ?", models.MovementApproved, from.UTC(), to.UTC())
	if gateName != "" {
		q = q.Where("gate_name = ?", gateName)
	}

	var times []time.Time
	if err := q.Order("created_at ASC").Pluck("created_at", &times).Error; err != nil {
		return nil, wrap(err)
	}
	return times, nil
}

type GateUsage struct {
	GateName  string `json:"gate_name"`
	Entries   int64  `json:"entries"`
	Exits     int64  `json:"exits"`
	Denials   int64  `json:"denials"`
	Movements int64  `json:"movements"`
}

// GateUsage aggregates approved movements per gate plus failed attempts at that gate.
func (s *Store) GateUsage(ctx context.Context, from, to time.Time) ([]GateUsage, error) {
	var stats []GateUsage
	if err := s.conn(ctx).Table("movements").
		Select("gate_name, "+
			"COUNT(CASE WHEN gate_direction = ? THEN 1 END) as entries, "+
			"COUNT(CASE WHEN gate_direction = ? THEN 1 END) as exits, "+
			"COUNT(*) as movements", models.DirectionEntry, models.DirectionExit).
		Where("status = ? AND created_at BETWEEN ? AND ?", models.MovementApproved, from.UTC(), to.UTC()).
		Group("gate_name").
		Order("movements DESC").
		Scan(&stats).Error; err != nil {
		return nil, wrap(err)
	}

	type denialRow struct {
		GateName string
		Count    int64
	}
	var denials []denialRow
	if err := s.conn(ctx).Table("failed_attempts").
		Select("gate_name, COUNT(*) as count").
		Where("attempted_at BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Group("gate_name").
		Scan(&denials).Error; err != nil {
		return nil, wrap(err)
	}

	index := make(map[string]int, len(stats))
	for i := range stats {
		index[stats[i].GateName] = i
	}
	for _, d := range denials {
		if i, ok := index[d.GateName]; ok {
			stats[i].Denials = d.Count
			continue
		}
		stats = append(stats, GateUsage{GateName: d.GateName, Denials: d.Count})
	}
	return stats, nil
}
