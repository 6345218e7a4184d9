package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/samrato/QMMMUST/internal/events"
	"github.com/samrato/QMMMUST/internal/mail"
	"github.com/samrato/QMMMUST/internal/metrics"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
)

type DeliveryResult string

const (
	Delivered DeliveryResult = "delivered"
	Failed    DeliveryResult = "failed"
)

const alertTimeLayout = "15:04:05"

// AlertEmitter creates alerts for approved movements and delivers them by mail.
// Delivery is at-least-once: a failed send leaves the alert pending for a retry.
type AlertEmitter struct {
	store   *store.Store
	mailer  mail.Mailer
	timeout time.Duration

	publisher events.Publisher
	metrics   *metrics.Metrics

	now      func() time.Time
	location *time.Location
	inflight sync.WaitGroup
}

func NewAlertEmitter(st *store.Store, mailer mail.Mailer, timeout time.Duration) *AlertEmitter {
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	return &AlertEmitter{
		store:     st,
		mailer:    mailer,
		timeout:   timeout,
		publisher: events.Nop{},
		now:       time.Now,
		location:  time.Local,
	}
}

func (e *AlertEmitter) SetPublisher(p events.Publisher) {
	if p != nil {
		e.publisher = p
	}
}

func (e *AlertEmitter) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// Enqueue must run inside the transaction that created movement.
func (e *AlertEmitter) Enqueue(ctx context.Context, tx *store.Store, movement *models.Movement, device *models.Device) (*models.Alert, error) {
	if movement == nil || movement.ID == 0 {
		return nil, fmt.Errorf("enqueue alert: %w: movement not persisted", ErrInvalid)
	}

	owner := device.Identity
	if owner == nil {
		found, err := tx.FindIdentity(ctx, device.IdentityID)
		if err != nil {
			return nil, fmt.Errorf("enqueue alert: owner %d: %w", device.IdentityID, err)
		}
		owner = found
	}

	alert := &models.Alert{
		IdentityID:     owner.ID,
		DeviceID:       device.ID,
		MovementID:     movement.ID,
		AlertType:      models.AlertTypeFor(movement.GateDirection),
		Message:        e.message(device, movement),
		RecipientEmail: owner.Email,
	}
	if err := tx.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("enqueue alert: %w", err)
	}
	alert.Identity = owner
	alert.Device = device
	return alert, nil
}

func (e *AlertEmitter) message(device *models.Device, movement *models.Movement) string {
	at := movement.CreatedAt
	if at.IsZero() {
		at = e.now()
	}
	return fmt.Sprintf("Your device (%s) has %s campus premises at %s. If this was not you, please report immediately.",
		device.DeviceName, movement.GateDirection.PastTense(), at.In(e.location).Format(alertTimeLayout))
}

// Dispatch attempts one delivery. A mail failure is recorded on the alert and reported
// as Failed with a nil error; only store failures are returned.
func (e *AlertEmitter) Dispatch(ctx context.Context, alert *models.Alert) (DeliveryResult, error) {
	if alert.Delivered {
		return Delivered, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.timeout)
	err := e.mailer.Send(sendCtx, mail.AlertMessage(alert.RecipientEmail, alert.Message))
	cancel()

	if err != nil {
		log.Printf("alert %d: delivery to %s failed: %v", alert.ID, alert.RecipientEmail, err)
		e.metrics.AlertDispatched(string(Failed))
		if recErr := e.store.RecordAlertFailure(ctx, alert.ID, err.Error()); recErr != nil {
			return Failed, fmt.Errorf("record alert failure: %w", recErr)
		}
		alert.Attempts++
		alert.LastError = err.Error()
		return Failed, nil
	}

	now := e.now()
	if err := e.store.MarkAlertDelivered(ctx, alert.ID, now); err != nil {
		return Delivered, fmt.Errorf("mark alert delivered: %w", err)
	}
	alert.Delivered = true
	alert.SentAt = &now
	alert.AbandonedAt = nil
	alert.LastError = ""
	e.metrics.AlertDispatched(string(Delivered))

	if err := e.publisher.Publish(ctx, events.Event{
		Type:       events.AlertDelivered,
		IdentityID: alert.IdentityID,
		OccurredAt: now,
		Payload: map[string]any{
			"alert_id":    alert.ID,
			"movement_id": alert.MovementID,
			"alert_type":  alert.AlertType,
		},
	}); err != nil {
		log.Printf("publish alert_delivered event: %v", err)
	}
	return Delivered, nil
}

// DispatchAsync delivers in the background, detached from the request that triggered it.
func (e *AlertEmitter) DispatchAsync(alert *models.Alert) {
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		if _, err := e.Dispatch(context.Background(), alert); err != nil {
			log.Printf("alert %d: %v", alert.ID, err)
		}
	}()
}

// Wait blocks until background dispatches finish.
func (e *AlertEmitter) Wait() {
	e.inflight.Wait()
}

func (e *AlertEmitter) DispatchByID(ctx context.Context, id uint) (DeliveryResult, error) {
	alert, err := e.store.FindAlert(ctx, id)
	if err != nil {
		return "", fmt.Errorf("dispatch alert %d: %w", id, err)
	}
	return e.Dispatch(ctx, alert)
}

// MarkDelivered records an external delivery confirmation. Repeating it is a no-op.
func (e *AlertEmitter) MarkDelivered(ctx context.Context, id uint) error {
	if err := e.store.MarkAlertDelivered(ctx, id, e.now()); err != nil {
		return fmt.Errorf("mark alert %d delivered: %w", id, err)
	}
	return nil
}

// Abandon removes an undelivered alert from the retry set.
func (e *AlertEmitter) Abandon(ctx context.Context, id uint) error {
	if err := e.store.AbandonAlert(ctx, id, e.now()); err != nil {
		return fmt.Errorf("abandon alert %d: %w", id, err)
	}
	return nil
}

// RetryPending re-dispatches up to batch pending alerts, oldest first.
func (e *AlertEmitter) RetryPending(ctx context.Context, batch int) (delivered, failed int, err error) {
	alerts, err := e.store.PendingAlerts(ctx, batch)
	if err != nil {
		return 0, 0, fmt.Errorf("load pending alerts: %w", err)
	}

	for i := range alerts {
		if ctx.Err() != nil {
			return delivered, failed, ctx.Err()
		}
		res, err := e.Dispatch(ctx, &alerts[i])
		if err != nil {
			return delivered, failed, err
		}
		if res == Delivered {
			delivered++
		} else {
			failed++
		}
	}
	return delivered, failed, nil
}
