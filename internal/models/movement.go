package models

import (
	"time"
)

type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

func (d Direction) Valid() bool {
	return d == DirectionEntry || d == DirectionExit
}

// PastTense is used in alert messages ("has exited", "has entered").
func (d Direction) PastTense() string {
	if d == DirectionEntry {
		return "entered"
	}
	return "exited"
}

type MovementStatus string

const (
	MovementApproved MovementStatus = "approved"
	MovementDenied   MovementStatus = "denied"
	MovementPending  MovementStatus = "pending"
)

type Movement struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	IdentityID uint      `gorm:"not null;index" json:"student_id"`
	Identity   *Identity `json:"student,omitempty"`

	DeviceID uint    `gorm:"not null;index" json:"device_id"`
	Device   *Device `json:"device,omitempty"`

	GatePassID *uint `json:"gate_pass_id,omitempty"`

	RFIDTag       string         `gorm:"column:rfid_tag;not null" json:"rfid_tag"`
	GateName      string         `gorm:"not null" json:"gate_name"`
	GateDirection Direction      `gorm:"not null" json:"gate_direction"`
	Status        MovementStatus `gorm:"not null;index" json:"status"`
}
