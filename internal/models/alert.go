package models

import (
	"time"
)

type AlertType string

const (
	AlertDeviceExit  AlertType = "device_exit"
	AlertDeviceEntry AlertType = "device_entry"
)

func AlertTypeFor(d Direction) AlertType {
	if d == DirectionEntry {
		return AlertDeviceEntry
	}
	return AlertDeviceExit
}

type AlertStatus string

const (
	AlertPending   AlertStatus = "pending"
	AlertDelivered AlertStatus = "delivered"
	AlertAbandoned AlertStatus = "abandoned"
)

type Alert struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	IdentityID uint      `gorm:"not null;index" json:"student_id"`
	Identity   *Identity `json:"student,omitempty"`

	DeviceID uint    `gorm:"not null" json:"device_id"`
	Device   *Device `json:"device,omitempty"`

	MovementID uint      `gorm:"not null;uniqueIndex" json:"movement_id"`
	Movement   *Movement `json:"-"`

	AlertType      AlertType `gorm:"not null" json:"alert_type"`
	Message        string    `gorm:"type:text;not null" json:"message"`
	RecipientEmail string    `gorm:"not null" json:"recipient_email"`

	Delivered   bool       `gorm:"column:is_sent;not null;default:false;index" json:"is_sent"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	AbandonedAt *time.Time `json:"abandoned_at,omitempty"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
}

func (a *Alert) Status() AlertStatus {
	switch {
	case a.Delivered:
		return AlertDelivered
	case a.AbandonedAt != nil:
		return AlertAbandoned
	default:
		return AlertPending
	}
}
