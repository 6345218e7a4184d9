package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Device struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	IdentityID uint      `gorm:"not null;index" json:"student_id"`
	Identity   *Identity `json:"owner,omitempty"`

	RFIDTag    string `gorm:"column:rfid_tag;uniqueIndex;not null" json:"rfid_tag"`
	DeviceName string `gorm:"not null" json:"device_name"`
	DeviceType string `json:"device_type"`

	GatePasses []GatePass `json:"gate_passes,omitempty"`
}

func NormalizeTag(tag string) string {
	return strings.TrimSpace(tag)
}

func (d *Device) BeforeSave(tx *gorm.DB) error {
	d.RFIDTag = NormalizeTag(d.RFIDTag)
	return nil
}

// OwnedBy reports whether identityID is the device's owner.
func (d *Device) OwnedBy(identityID uint) bool {
	return d.IdentityID != 0 && d.IdentityID == identityID
}
