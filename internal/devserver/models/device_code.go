package models

import "time"

type DeviceCodeStatus string

const (
	DeviceCodePending  DeviceCodeStatus = "pending"
	DeviceCodeApproved DeviceCodeStatus = "approved"
	DeviceCodeDenied   DeviceCodeStatus = "denied"
	DeviceCodeExpired  DeviceCodeStatus = "expired"
)

// DeviceCode tracks one pending device authorization of the dev identity
// provider. Subject, Email and Name describe the identity once approved.
type DeviceCode struct {
	BaseModel
	DeviceCodeHash string           `gorm:"type:text;not null;uniqueIndex"`
	UserCode       string           `gorm:"type:varchar(16);not null;uniqueIndex"`
	ClientID       string           `gorm:"type:varchar(255)"`
	ExpiresAt      time.Time        `gorm:"not null;index"`
	Interval       int              `gorm:"not null;default:5"`
	Status         DeviceCodeStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Subject        string           `gorm:"type:varchar(255)"`
	Email          string           `gorm:"type:varchar(255)"`
	Name           string           `gorm:"type:varchar(255)"`
}
