package models

import (
	"time"
)

type GatePass struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reference string `gorm:"uniqueIndex;not null" json:"reference"`

	IdentityID uint    `gorm:"not null;index" json:"student_id"`
	DeviceID   uint    `gorm:"not null;index" json:"device_id"`
	Device     *Device `json:"device,omitempty"`

	QRPayload    string `gorm:"type:text;not null" json:"qr_payload"`
	QRCode       string `gorm:"type:text;not null" json:"qr_code"`
	EncryptedPIN string `gorm:"not null" json:"-"`

	// PIN is only populated on the issuance response.
	PIN string `gorm:"-" json:"pin,omitempty"`

	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

func (p *GatePass) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

func (p *GatePass) IsConsumed() bool {
	return p.ConsumedAt != nil
}
