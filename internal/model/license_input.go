package model

import "time"

// LicenseCreate is the admin payload for generating a new license.
// Empty optional strings are stored as-is and treated as unset.
type LicenseCreate struct {
	CustomerName          string    `json:"customer_name"`
	CompanyName           string    `json:"company_name"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone"`
	ExpiresAt             time.Time `json:"expires_at"`
	MaxActivations        int       `json:"max_activations"`
	RestrictedFingerprint string    `json:"restricted_fingerprint"`
	Notes                 string    `json:"notes"`
}

type ActivateRequest struct {
	LicenseKey          string `json:"license_key"`
	HardwareFingerprint string `json:"hardware_fingerprint"`
	DeviceName          string `json:"device_name"`
}

type ValidateRequest struct {
	LicenseKey          string `json:"license_key"`
	HardwareFingerprint string `json:"hardware_fingerprint"`
}

type BlockRequest struct {
	LicenseKey string `json:"license_key"`
	Message    string `json:"message"`
}

type UnblockRequest struct {
	LicenseKey string `json:"license_key"`
}

type ExtendRequest struct {
	LicenseKey string    `json:"license_key"`
	NewExpiry  time.Time `json:"new_expiry"`
}

type AdminLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RemoteLicense is the wire form of a license record exchanged with the
// remote registry. Timestamps travel as ISO-8601 text.
type RemoteLicense struct {
	LicenseKey            string `json:"license_key"`
	CustomerName          string `json:"customer_name"`
	CompanyName           string `json:"company_name,omitempty"`
	Email                 string `json:"email,omitempty"`
	Phone                 string `json:"phone,omitempty"`
	ExpiresAt             string `json:"expires_at"`
	MaxActivations        int    `json:"max_activations"`
	RestrictedFingerprint string `json:"restricted_fingerprint"`
	Notes                 string `json:"notes,omitempty"`
	IsBlocked             bool   `json:"is_blocked,omitempty"`
	CreatedBy             string `json:"created_by,omitempty"`
	GeneratedAt           string `json:"generated_at,omitempty"`
	UpdatedAt             string `json:"updated_at,omitempty"`
}
