package model

import "time"

// License is a hardware-bound license record. The key is an opaque
// identifier in the form WB-XXXXXXXX-XXXXXXXX, not a signed token.
type License struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	LicenseKey            string    `json:"license_key" gorm:"uniqueIndex;size:50;not null"`
	CustomerName          string    `json:"customer_name" gorm:"not null"`
	CompanyName           string    `json:"company_name"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone"`
	ExpiresAt             time.Time `json:"expires_at" gorm:"not null"`
	MaxActivations        int       `json:"max_activations" gorm:"default:1"`
	RestrictedFingerprint string    `json:"restricted_fingerprint"`
	Notes                 string    `json:"notes"`
	IsBlocked             bool      `json:"is_blocked" gorm:"default:false"`
	BlockMessage          string    `json:"block_message"`
	CreatedBy             string    `json:"created_by" gorm:"size:50"`
	GeneratedAt           time.Time `json:"generated_at" gorm:"autoCreateTime"`
	UpdatedAt             time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Activation is one consumed activation slot. Rows are never deleted
// individually; admin deactivation flips IsActive and frees the slot.
type Activation struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	LicenseKey          string     `json:"license_key" gorm:"index;size:50;not null"`
	HardwareFingerprint string     `json:"hardware_fingerprint" gorm:"not null"`
	DeviceName          string     `json:"device_name"`
	ActivatedAt         time.Time  `json:"activated_at" gorm:"autoCreateTime"`
	LastValidated       *time.Time `json:"last_validated"`
	IsActive            bool       `json:"is_active" gorm:"default:true"`
}

// ValidationLog is an append-only audit record of every activate/validate
// attempt. The core only ever writes these, it never reads them back.
type ValidationLog struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	LicenseKey          string    `json:"license_key" gorm:"index;size:50"`
	HardwareFingerprint string    `json:"hardware_fingerprint"`
	Status              string    `json:"status" gorm:"size:50"`
	RemoteOverride      bool      `json:"remote_override" gorm:"default:false"`
	Message             string    `json:"message"`
	ValidatedAt         time.Time `json:"validated_at" gorm:"autoCreateTime"`
}

// Validation log status values. Stable audit identifiers, do not rename.
const (
	StatusValid          = "valid"
	StatusExpired        = "expired"
	StatusBlocked        = "blocked"
	StatusMismatch       = "hardware_mismatch"
	StatusNotImplemented = "not_implemented"
	StatusNotFound       = "not_found"
	StatusRemoteDisabled = "remote_disabled"
)
