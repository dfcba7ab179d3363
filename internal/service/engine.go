package service

import (
	"fmt"
	"time"

	"github.com/faruque-tulsi/license-server/internal/model"

	"gorm.io/gorm"
)

// Stable rejection reason codes surfaced to clients.
const (
	ReasonMissingBinding = "missing_binding"
	ReasonMismatch       = "hardware_mismatch"
	ReasonBlocked        = "blocked"
	ReasonExpired        = "expired"
	ReasonSlotsExhausted = "max_activations_reached"
	ReasonNotActivated   = "not_activated"
	ReasonRemoteDisabled = "remote_disabled"
)

const DefaultBlockMessage = "License is blocked"

// Rejection is a lifecycle check failure. Reason is the client-facing code,
// LogStatus the audit status string written to the validation log.
type Rejection struct {
	Reason    string
	LogStatus string
	Message   string
}

// CheckLicense runs the lifecycle checks in strict order, first match wins:
// missing binding, hardware mismatch, blocked, expired. A nil return means
// the license is eligible and slot accounting may proceed.
func CheckLicense(lic *model.License, fingerprint string, now time.Time) *Rejection {
	if lic.RestrictedFingerprint == "" {
		// Licenses must always carry a binding; an unset fingerprint is a
		// configuration error, not a normal rejection.
		return &Rejection{
			Reason:    ReasonMissingBinding,
			LogStatus: model.StatusNotImplemented,
			Message:   "License is missing hardware binding data",
		}
	}

	if lic.RestrictedFingerprint != fingerprint {
		return &Rejection{
			Reason:    ReasonMismatch,
			LogStatus: model.StatusMismatch,
			Message:   "This license is already bound to a different machine",
		}
	}

	if lic.IsBlocked {
		msg := lic.BlockMessage
		if msg == "" {
			msg = DefaultBlockMessage
		}
		return &Rejection{
			Reason:    ReasonBlocked,
			LogStatus: model.StatusBlocked,
			Message:   msg,
		}
	}

	if !lic.ExpiresAt.After(now) {
		return &Rejection{
			Reason:    ReasonExpired,
			LogStatus: model.StatusExpired,
			Message:   "License has expired",
		}
	}

	return nil
}

// Slot accounting outcomes.
type ActivationOutcome int

const (
	ActivationGranted ActivationOutcome = iota
	AlreadyActivated
	SlotsExhausted
)

// ClaimSlot attempts to consume an activation slot for the fingerprint.
// Re-activating an already active (key, fingerprint) pair is an idempotent
// success. The recheck, count and insert run in one transaction so two
// racing activations cannot both take the last slot.
func ClaimSlot(db *gorm.DB, lic *model.License, fingerprint, deviceName string) (ActivationOutcome, error) {
	outcome := ActivationGranted

	err := db.Transaction(func(tx *gorm.DB) error {
		var existing model.Activation
		result := tx.Where("license_key = ? AND hardware_fingerprint = ? AND is_active = ?",
			lic.LicenseKey, fingerprint, true).First(&existing)
		if result.Error == nil {
			outcome = AlreadyActivated
			return nil
		}
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}

		var activeCount int64
		if err := tx.Model(&model.Activation{}).
			Where("license_key = ? AND is_active = ?", lic.LicenseKey, true).
			Count(&activeCount).Error; err != nil {
			return err
		}
		if activeCount >= int64(lic.MaxActivations) {
			outcome = SlotsExhausted
			return nil
		}

		activation := &model.Activation{
			LicenseKey:          lic.LicenseKey,
			HardwareFingerprint: fingerprint,
			DeviceName:          deviceName,
			IsActive:            true,
		}
		return tx.Create(activation).Error
	})
	if err != nil {
		return ActivationGranted, err
	}
	return outcome, nil
}

// FindActiveActivation returns the active activation for the exact
// (key, fingerprint) pair, or nil when the device was never activated.
func FindActiveActivation(db *gorm.DB, licenseKey, fingerprint string) (*model.Activation, error) {
	var activation model.Activation
	result := db.Where("license_key = ? AND hardware_fingerprint = ? AND is_active = ?",
		licenseKey, fingerprint, true).First(&activation)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &activation, nil
}

// TouchLastValidated stamps a successful validation on the activation.
func TouchLastValidated(db *gorm.DB, activation *model.Activation, now time.Time) error {
	return db.Model(activation).Update("last_validated", now).Error
}

// DaysRemaining reports whole days until expiry, rounded down.
func DaysRemaining(expiresAt, now time.Time) int {
	return int(expiresAt.Sub(now).Hours() / 24)
}

// SlotsExhaustedMessage formats the rejection message for a full license.
func SlotsExhaustedMessage(max int) string {
	return fmt.Sprintf("Maximum activations (%d) reached", max)
}
