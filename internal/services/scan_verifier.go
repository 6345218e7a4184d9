package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samrato/QMMMUST/internal/events"
	"github.com/samrato/QMMMUST/internal/guard"
	"github.com/samrato/QMMMUST/internal/metrics"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
	"github.com/samrato/QMMMUST/internal/utils"
)

type Decision string

const (
	Approved Decision = "approved"
	Denied   Decision = "denied"
)

const auditWriteTimeout = 5 * time.Second

var tracer = otel.Tracer("github.com/samrato/QMMMUST/internal/services")

type ScanRequest struct {
	RFIDTag   string
	PIN       string
	GateName  string
	Direction models.Direction
	SourceIP  string
}

func (r ScanRequest) normalized() ScanRequest {
	r.RFIDTag = models.NormalizeTag(r.RFIDTag)
	r.PIN = strings.TrimSpace(r.PIN)
	r.GateName = strings.TrimSpace(r.GateName)
	r.Direction = models.Direction(strings.ToLower(strings.TrimSpace(string(r.Direction))))
	return r
}

func (r ScanRequest) validate() error {
	switch {
	case r.RFIDTag == "":
		return fmt.Errorf("%w: rfid_tag is required", ErrInvalid)
	case r.PIN == "":
		return fmt.Errorf("%w: pin is required", ErrInvalid)
	case r.GateName == "":
		return fmt.Errorf("%w: gate_name is required", ErrInvalid)
	case !r.Direction.Valid():
		return fmt.Errorf("%w: gate_direction must be entry or exit", ErrInvalid)
	}
	return nil
}

type ScanResult struct {
	Decision Decision
	Reason   models.FailureReason
	Message  string

	Identity *models.Identity
	Device   *models.Device
	Movement *models.Movement
	Alert    *models.Alert
	Attempt  *models.FailedAttempt

	NotificationSent bool
}

func (r *ScanResult) Approved() bool {
	return r.Decision == Approved
}

// ScanVerifier decides gate scans. Every well-formed scan leaves exactly one Movement
// or one FailedAttempt behind.
type ScanVerifier struct {
	store  *store.Store
	cipher *utils.Cipher
	alerts *AlertEmitter

	limiter   guard.Limiter
	replay    guard.ReplayGuard
	publisher events.Publisher
	metrics   *metrics.Metrics

	locks keyedMutex
	now   func() time.Time
}

func NewScanVerifier(st *store.Store, cipher *utils.Cipher, alerts *AlertEmitter) *ScanVerifier {
	return &ScanVerifier{
		store:     st,
		cipher:    cipher,
		alerts:    alerts,
		publisher: events.Nop{},
		now:       time.Now,
	}
}

func (v *ScanVerifier) SetLimiter(l guard.Limiter) {
	v.limiter = l
}

func (v *ScanVerifier) SetReplayGuard(r guard.ReplayGuard) {
	v.replay = r
}

func (v *ScanVerifier) SetPublisher(p events.Publisher) {
	if p != nil {
		v.publisher = p
	}
}

func (v *ScanVerifier) SetMetrics(m *metrics.Metrics) {
	v.metrics = m
}

// VerifyScan returns a decision for well-formed requests, ErrInvalid for malformed ones
// and a wrapped error for faults. Faults are audited as internal_error before returning.
func (v *ScanVerifier) VerifyScan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "ScanVerifier.VerifyScan")
	defer span.End()

	req = req.normalized()
	span.SetAttributes(attribute.String("gate.name", req.GateName), attribute.String("gate.direction", string(req.Direction)))
	if err := req.validate(); err != nil {
		return nil, err
	}

	res, device, err := v.verify(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan verification failed")
		v.recordInternalError(ctx, req, device, err)
		v.metrics.ObserveScan("error", string(models.ReasonInternalError), time.Since(start).Seconds())
		return nil, err
	}

	span.SetAttributes(attribute.String("scan.decision", string(res.Decision)), attribute.String("scan.reason", string(res.Reason)))
	v.metrics.ObserveScan(string(res.Decision), string(res.Reason), time.Since(start).Seconds())
	v.publish(ctx, req, res)

	if res.Alert != nil {
		v.alerts.DispatchAsync(res.Alert)
	}
	return res, nil
}

func (v *ScanVerifier) verify(ctx context.Context, req ScanRequest) (*ScanResult, *models.Device, error) {
	device, err := v.store.FindDeviceByTag(ctx, req.RFIDTag)
	if errors.Is(err, store.ErrNotFound) {
		res, err := v.deny(ctx, req, nil, models.ReasonDeviceNotFound)
		return res, nil, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("verify scan: lookup device: %w", err)
	}

	if v.limiter != nil {
		if d := v.limiter.Allow(ctx, device.RFIDTag); !d.Allowed {
			res, err := v.deny(ctx, req, device, models.ReasonRateLimited)
			return res, device, err
		}
	}

	if v.replay != nil {
		key := replayKey(device.ID, req.PIN)
		seen, err := v.replay.Seen(ctx, key)
		switch {
		case err != nil:
			log.Printf("scan replay guard unavailable: %v", err)
		case seen:
			res, err := v.deny(ctx, req, device, models.ReasonDuplicateScan)
			return res, device, err
		default:
			res, err := v.decide(ctx, req, device)
			if err != nil {
				v.forgetReplay(ctx, key)
			}
			return res, device, err
		}
	}

	res, err := v.decide(ctx, req, device)
	return res, device, err
}

func replayKey(deviceID uint, pin string) string {
	return strconv.FormatUint(uint64(deviceID), 10) + ":" + pin
}

// forgetReplay releases a replay key when no decision was committed, so a retry is judged again.
func (v *ScanVerifier) forgetReplay(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := v.replay.Forget(ctx, key); err != nil {
		log.Printf("scan replay guard: forget %s: %v", key, err)
	}
}

// decide runs the pass checks for a resolved device under its lock.
func (v *ScanVerifier) decide(ctx context.Context, req ScanRequest, device *models.Device) (*ScanResult, error) {
	unlock := v.locks.Lock(device.ID)
	defer unlock()

	var (
		reason   models.FailureReason
		movement *models.Movement
		alert    *models.Alert
	)
	err := v.store.Transaction(ctx, func(tx *store.Store) error {
		pass, err := tx.LatestPassForDevice(ctx, device.ID)
		if errors.Is(err, store.ErrNotFound) {
			reason = models.ReasonInvalidPIN
			return nil
		}
		if err != nil {
			return fmt.Errorf("load gate pass: %w", err)
		}

		match, err := v.cipher.Matches(req.PIN, pass.EncryptedPIN)
		if err != nil {
			return fmt.Errorf("decrypt gate pass pin: %w", err)
		}

		now := v.now()
		switch {
		case !match:
			reason = models.ReasonInvalidPIN
		case pass.IsConsumed():
			reason = models.ReasonPassConsumed
		case pass.IsExpired(now):
			reason = models.ReasonPassExpired
		}
		if reason != "" {
			return nil
		}

		claimed, err := tx.ClaimPass(ctx, pass.ID, now)
		if err != nil {
			return fmt.Errorf("claim gate pass: %w", err)
		}
		if !claimed {
			reason = models.ReasonPassConsumed
			return nil
		}

		passID := pass.ID
		movement = &models.Movement{
			IdentityID:    device.IdentityID,
			DeviceID:      device.ID,
			GatePassID:    &passID,
			RFIDTag:       device.RFIDTag,
			GateName:      req.GateName,
			GateDirection: req.Direction,
			Status:        models.MovementApproved,
		}
		if err := tx.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}

		alert, err = v.alerts.Enqueue(ctx, tx, movement, device)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("verify scan: %w", err)
	}

	if reason != "" {
		return v.deny(ctx, req, device, reason)
	}

	movement.Identity = device.Identity
	movement.Device = device
	return &ScanResult{
		Decision:         Approved,
		Message:          "Device verified",
		Identity:         device.Identity,
		Device:           device,
		Movement:         movement,
		Alert:            alert,
		NotificationSent: alert != nil,
	}, nil
}

func (v *ScanVerifier) deny(ctx context.Context, req ScanRequest, device *models.Device, reason models.FailureReason) (*ScanResult, error) {
	attempt := v.attempt(req, device, reason)
	if err := v.store.CreateFailedAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("verify scan: record failed attempt: %w", err)
	}
	return &ScanResult{
		Decision: Denied,
		Reason:   reason,
		Message:  reason.Message(),
		Device:   device,
		Attempt:  attempt,
	}, nil
}

func (v *ScanVerifier) attempt(req ScanRequest, device *models.Device, reason models.FailureReason) *models.FailedAttempt {
	attempt := &models.FailedAttempt{
		RFIDTag:       req.RFIDTag,
		GateName:      req.GateName,
		GateDirection: req.Direction,
		Reason:        reason,
		IPAddress:     req.SourceIP,
		AttemptedAt:   v.now(),
	}
	if device != nil {
		id := device.ID
		attempt.DeviceID = &id
	}
	return attempt
}

// recordInternalError writes the audit row even if the caller's context is gone.
func (v *ScanVerifier) recordInternalError(ctx context.Context, req ScanRequest, device *models.Device, cause error) {
	log.Printf("gate scan %s at %s failed: %v", req.RFIDTag, req.GateName, cause)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := v.store.CreateFailedAttempt(ctx, v.attempt(req, device, models.ReasonInternalError)); err != nil {
		log.Printf("gate scan %s: audit write failed: %v", req.RFIDTag, err)
	}
}

func (v *ScanVerifier) publish(ctx context.Context, req ScanRequest, res *ScanResult) {
	ev := events.Event{
		Type:       events.ScanDenied,
		OccurredAt: v.now(),
		Payload: map[string]any{
			"rfid_tag":       req.RFIDTag,
			"gate_name":      req.GateName,
			"gate_direction": req.Direction,
			"decision":       res.Decision,
			"reason":         res.Reason,
		},
	}
	if res.Device != nil {
		ev.IdentityID = res.Device.IdentityID
	}
	if res.Approved() {
		ev.Type = events.ScanApproved
		ev.Payload = map[string]any{
			"movement_id":    res.Movement.ID,
			"rfid_tag":       req.RFIDTag,
			"gate_name":      req.GateName,
			"gate_direction": req.Direction,
			"decision":       res.Decision,
			"student_name":   identityName(res.Identity),
		}
	}

	if err := v.publisher.Publish(ctx, ev); err != nil {
		log.Printf("publish %s event: %v", ev.Type, err)
	}
}

func identityName(i *models.Identity) string {
	if i == nil {
		return ""
	}
	return i.Name
}
