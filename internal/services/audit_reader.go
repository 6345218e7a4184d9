package services

import (
	"context"
	"fmt"

	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
)

const recentItems = 10

// AuditReader exposes read-only views over movements, failed attempts and alerts.
type AuditReader struct {
	store *store.Store
}

func NewAuditReader(st *store.Store) *AuditReader {
	return &AuditReader{store: st}
}

func (r *AuditReader) ListMovements(ctx context.Context, f store.MovementFilter) ([]models.Movement, int64, error) {
	items, total, err := r.store.ListMovements(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	return items, total, nil
}

func (r *AuditReader) ListFailedAttempts(ctx context.Context, f store.FailedAttemptFilter) ([]models.FailedAttempt, int64, error) {
	items, total, err := r.store.ListFailedAttempts(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list failed attempts: %w", err)
	}
	return items, total, nil
}

func (r *AuditReader) ListAlerts(ctx context.Context, f store.AlertFilter) ([]models.Alert, int64, error) {
	items, total, err := r.store.ListAlerts(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	return items, total, nil
}

func (r *AuditReader) ListStudents(ctx context.Context, page store.Page) ([]models.Identity, int64, error) {
	items, total, err := r.store.ListIdentities(ctx, models.RoleStudent, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	return items, total, nil
}

type StudentDetail struct {
	Student   *models.Identity  `json:"student"`
	Devices   []models.Device   `json:"devices"`
	Movements []models.Movement `json:"movements"`
}

func (r *AuditReader) StudentDetail(ctx context.Context, id uint) (*StudentDetail, error) {
	student, err := r.store.FindIdentity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("student %d: %w", id, err)
	}
	devices, err := r.store.ListDevices(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("student %d devices: %w", id, err)
	}
	movements, _, err := r.store.ListMovements(ctx, store.MovementFilter{
		IdentityID: id,
		Page:       store.Page{Limit: recentItems},
	})
	if err != nil {
		return nil, fmt.Errorf("student %d movements: %w", id, err)
	}
	return &StudentDetail{Student: student, Devices: devices, Movements: movements}, nil
}

type DashboardStats struct {
	TotalStudents   int64             `json:"total_students"`
	TotalDevices    int64             `json:"total_devices"`
	TotalMovements  int64             `json:"total_movements"`
	FailedAttempts  int64             `json:"failed_attempts"`
	PendingAlerts   int64             `json:"pending_alerts"`
	RecentMovements []models.Movement `json:"recent_movements"`
	RecentAlerts    []models.Alert    `json:"recent_alerts"`
}

func (r *AuditReader) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)

	if stats.TotalStudents, err = r.store.CountIdentities(ctx, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if stats.TotalDevices, err = r.store.CountDevices(ctx); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if stats.TotalMovements, err = r.store.CountMovements(ctx); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if stats.FailedAttempts, err = r.store.CountFailedAttempts(ctx); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if stats.PendingAlerts, err = r.store.CountPendingAlerts(ctx); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if stats.RecentMovements, _, err = r.store.ListMovements(ctx, store.MovementFilter{Page: store.Page{Limit: recentItems}}); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if stats.RecentAlerts, _, err = r.store.ListAlerts(ctx, store.AlertFilter{Page: store.Page{Limit: recentItems}}); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return &stats, nil
}
