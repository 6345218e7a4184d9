package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/samrato/QMMMUST/internal/events"
	"github.com/samrato/QMMMUST/internal/mail"
	"github.com/samrato/QMMMUST/internal/metrics"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
	"github.com/samrato/QMMMUST/internal/utils"
)

type IssuedPass struct {
	Pass      *models.GatePass
	EmailSent bool
}

type PassIssuer struct {
	store       *store.Store
	cipher      *utils.Cipher
	mailer      mail.Mailer
	ttl         time.Duration
	mailTimeout time.Duration

	publisher events.Publisher
	metrics   *metrics.Metrics

	now         func() time.Time
	generatePIN func() (string, error)
}

// NewPassIssuer builds an issuer. ttl <= 0 issues passes that never expire.
func NewPassIssuer(st *store.Store, cipher *utils.Cipher, mailer mail.Mailer, ttl, mailTimeout time.Duration) *PassIssuer {
	if mailTimeout <= 0 {
		mailTimeout = defaultMailTimeout
	}
	return &PassIssuer{
		store:       st,
		cipher:      cipher,
		mailer:      mailer,
		ttl:         ttl,
		mailTimeout: mailTimeout,
		publisher:   events.Nop{},
		now:         time.Now,
		generatePIN: utils.GeneratePIN,
	}
}

func (i *PassIssuer) SetPublisher(p events.Publisher) {
	if p != nil {
		i.publisher = p
	}
}

func (i *PassIssuer) SetMetrics(m *metrics.Metrics) {
	i.metrics = m
}

// IssuePass creates a fresh pass for a device owned by identityID. The newest pass
// supersedes every earlier one for the same device.
func (i *PassIssuer) IssuePass(ctx context.Context, identityID, deviceID uint) (*IssuedPass, error) {
	ctx, span := tracer.Start(ctx, "PassIssuer.IssuePass")
	defer span.End()

	device, err := i.store.FindOwnedDevice(ctx, deviceID, identityID)
	if err != nil {
		return nil, fmt.Errorf("issue pass: device %d: %w", deviceID, err)
	}

	pin, err := i.generatePIN()
	if err != nil {
		return nil, fmt.Errorf("issue pass: generate pin: %w", err)
	}
	encryptedPIN, err := i.cipher.Encrypt(pin)
	if err != nil {
		return nil, fmt.Errorf("issue pass: encrypt pin: %w", err)
	}

	now := i.now()
	payload, err := utils.EncodeQRPayload(utils.QRPayload{
		StudentID: identityID,
		DeviceID:  device.ID,
		RFIDTag:   device.RFIDTag,
		Timestamp: now.UTC(),
		Nonce:     uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("issue pass: encode qr payload: %w", err)
	}
	png, err := utils.RenderQR(payload)
	if err != nil {
		return nil, fmt.Errorf("issue pass: render qr: %w", err)
	}

	pass := &models.GatePass{
		Reference:    uuid.NewString(),
		IdentityID:   identityID,
		DeviceID:     device.ID,
		QRPayload:    payload,
		QRCode:       utils.PNGDataURL(png),
		EncryptedPIN: encryptedPIN,
	}
	if i.ttl > 0 {
		expires := now.Add(i.ttl)
		pass.ExpiresAt = &expires
	}

	if err := i.store.CreatePass(ctx, pass); err != nil {
		return nil, fmt.Errorf("issue pass: %w", err)
	}
	pass.PIN = pin
	pass.Device = device

	sent := i.mailPass(ctx, device, pass, png)
	i.metrics.PassIssued(sent)

	if err := i.publisher.Publish(ctx, events.Event{
		Type:       events.PassIssued,
		IdentityID: identityID,
		OccurredAt: now,
		Payload: map[string]any{
			"gate_pass_id": pass.ID,
			"reference":    pass.Reference,
			"device_id":    device.ID,
			"expires_at":   pass.ExpiresAt,
		},
	}); err != nil {
		log.Printf("publish pass_issued event: %v", err)
	}

	return &IssuedPass{Pass: pass, EmailSent: sent}, nil
}

// mailPass never fails issuance; the pass is already committed.
func (i *PassIssuer) mailPass(ctx context.Context, device *models.Device, pass *models.GatePass, png []byte) bool {
	owner := device.Identity
	if owner == nil || owner.Email == "" {
		return false
	}

	doc, err := mail.RenderPassPDF(mail.PassDocument{
		Reference:  pass.Reference,
		Holder:     owner.Name,
		Regno:      owner.RegistrationNumber,
		DeviceName: device.DeviceName,
		RFIDTag:    device.RFIDTag,
		IssuedAt:   pass.CreatedAt,
		ExpiresAt:  pass.ExpiresAt,
		QRPNG:      png,
	})
	if err != nil {
		log.Printf("gate pass %s: pdf skipped: %v", pass.Reference, err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.mailTimeout)
	defer cancel()

	msg := mail.PassIssuedMessage(owner.Email, owner.Name, device.DeviceName, pass.PIN, pass.ExpiresAt, png, doc)
	if err := i.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("gate pass %s: email timed out after %v", pass.Reference, i.mailTimeout)
		} else {
			log.Printf("gate pass %s: email failed: %v", pass.Reference, err)
		}
		return false
	}
	return true
}
