package models

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type Identity struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RegistrationNumber string     `gorm:"uniqueIndex;not null" json:"registration_number"`
	Name               string     `gorm:"not null" json:"name"`
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	Role               Role       `gorm:"not null;default:'student'" json:"role"`
	PasswordHash       string     `gorm:"not null" json:"-"`
	Active             bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt        *time.Time `json:"last_login,omitempty"`

	TwoFactorEnabled bool   `gorm:"not null;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `json:"-"`
	RecoveryCodes    string `json:"-"`

	Devices []Device `json:"devices,omitempty"`
}

// BeforeSave hashes PasswordHash when it still holds a plaintext password.
func (i *Identity) BeforeSave(tx *gorm.DB) error {
	if i.PasswordHash == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(i.PasswordHash)); err == nil {
		return nil
	}
	hashed, err := HashPassword(i.PasswordHash)
	if err != nil {
		return err
	}
	i.PasswordHash = hashed
	return nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (i *Identity) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(i.PasswordHash), []byte(password)) == nil
}
