package models

import (
	"time"
)

type FailureReason string

const (
	ReasonDeviceNotFound FailureReason = "device_not_found"
	ReasonInvalidPIN     FailureReason = "invalid_pin"
	ReasonPassExpired    FailureReason = "pass_expired"
	ReasonPassConsumed   FailureReason = "pass_consumed"
	ReasonRateLimited    FailureReason = "rate_limited"
	ReasonDuplicateScan  FailureReason = "duplicate_scan"
	ReasonInternalError  FailureReason = "internal_error"
)

type FailedAttempt struct {
	ID uint `gorm:"primarykey" json:"id"`

	DeviceID *uint   `gorm:"index" json:"device_id,omitempty"`
	Device   *Device `json:"device,omitempty"`

	RFIDTag       string        `gorm:"column:rfid_tag;not null;index" json:"rfid_tag"`
	GateName      string        `json:"gate_name,omitempty"`
	GateDirection Direction     `json:"gate_direction,omitempty"`
	Reason        FailureReason `gorm:"not null;index" json:"reason"`
	IPAddress     string        `json:"ip_address,omitempty"`
	AttemptedAt   time.Time     `gorm:"not null;index" json:"attempted_at"`
}

// Message is the coarse text returned to the scanning hardware.
func (r FailureReason) Message() string {
	switch r {
	case ReasonDeviceNotFound:
		return "Device not registered"
	case ReasonInvalidPIN:
		return "Invalid PIN"
	case ReasonPassExpired:
		return "Gate pass expired"
	case ReasonPassConsumed:
		return "Gate pass already used"
	case ReasonRateLimited:
		return "Too many attempts, try again later"
	case ReasonDuplicateScan:
		return "Duplicate scan ignored"
	default:
		return "Verification failed"
	}
}
