package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound means the license exists neither locally nor remotely.
var ErrNotFound = errors.New("license not found")

// RejectionError carries an authoritative rejection to the transport layer.
type RejectionError struct {
	Reason  string
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// LicenseService orchestrates activation and validation: remote override
// check, local lookup with one-shot remote import, lifecycle checks and
// slot accounting.
type LicenseService struct {
	remote *RemoteClient
}

func NewLicenseService(remote *RemoteClient) *LicenseService {
	return &LicenseService{remote: remote}
}

type ActivateResult struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Activate claims an activation slot for a device. Errors are either
// ErrNotFound, a *RejectionError, or an internal persistence error.
func (s *LicenseService) Activate(licenseKey, fingerprint, deviceName string) (*ActivateResult, error) {
	lic, err := s.resolveLicense(licenseKey)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		LogValidation(licenseKey, fingerprint, model.StatusNotFound, false, "")
		return nil, ErrNotFound
	}

	override := s.remote.CheckOverride(licenseKey)
	if !override.Allowed {
		msg := override.Message
		if msg == "" {
			msg = "License disabled by administrator"
		}
		LogValidation(licenseKey, fingerprint, model.StatusRemoteDisabled, true, override.Message)
		return nil, &RejectionError{Reason: ReasonRemoteDisabled, Message: msg}
	}

	now := time.Now()
	if rej := CheckLicense(lic, fingerprint, now); rej != nil {
		LogValidation(licenseKey, fingerprint, rej.LogStatus, false, logMessage(lic, rej))
		return nil, &RejectionError{Reason: rej.Reason, Message: rej.Message}
	}

	outcome, err := ClaimSlot(database.DB, lic, fingerprint, deviceName)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case AlreadyActivated:
		LogValidation(licenseKey, fingerprint, model.StatusValid, false, "")
		return &ActivateResult{
			Message:   "Already activated on this device",
			ExpiresAt: lic.ExpiresAt,
		}, nil
	case SlotsExhausted:
		LogValidation(licenseKey, fingerprint, model.StatusMismatch, false, "")
		return nil, &RejectionError{
			Reason:  ReasonSlotsExhausted,
			Message: SlotsExhaustedMessage(lic.MaxActivations),
		}
	default:
		LogValidation(licenseKey, fingerprint, model.StatusValid, false, "")
		return &ActivateResult{
			Message:   "License activated successfully",
			ExpiresAt: lic.ExpiresAt,
		}, nil
	}
}

type ValidateResult struct {
	Valid         bool
	IsBlocked     bool
	Reason        string
	Message       string
	ExpiresAt     time.Time
	DaysRemaining int
	CustomerName  string
	CompanyName   string
}

// Validate checks a license for a device without consuming a slot. A
// rejection comes back as a ValidateResult with Valid=false; only an
// unknown key is a hard ErrNotFound.
func (s *LicenseService) Validate(licenseKey, fingerprint string) (*ValidateResult, error) {
	// The override check runs before any local lookup here; a remotely
	// disabled key must not validate even if the local record looks fine.
	override := s.remote.CheckOverride(licenseKey)
	if !override.Allowed {
		msg := override.Message
		if msg == "" {
			msg = "License disabled by administrator"
		}
		LogValidation(licenseKey, fingerprint, model.StatusRemoteDisabled, true, override.Message)
		return &ValidateResult{
			Valid:     false,
			IsBlocked: true,
			Reason:    ReasonRemoteDisabled,
			Message:   msg,
		}, nil
	}

	lic, err := s.resolveLicense(licenseKey)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		LogValidation(licenseKey, fingerprint, model.StatusNotFound, false, "")
		return nil, ErrNotFound
	}

	now := time.Now()
	if rej := CheckLicense(lic, fingerprint, now); rej != nil {
		LogValidation(licenseKey, fingerprint, rej.LogStatus, false, logMessage(lic, rej))
		return &ValidateResult{
			Valid:     false,
			IsBlocked: rej.Reason == ReasonBlocked,
			Reason:    rej.Reason,
			Message:   rej.Message,
			ExpiresAt: lic.ExpiresAt,
		}, nil
	}

	activation, err := FindActiveActivation(database.DB, licenseKey, fingerprint)
	if err != nil {
		return nil, err
	}
	if activation == nil {
		LogValidation(licenseKey, fingerprint, model.StatusMismatch, false, "")
		return &ValidateResult{
			Valid:     false,
			Reason:    ReasonNotActivated,
			Message:   "License not activated on this device",
			ExpiresAt: lic.ExpiresAt,
		}, nil
	}

	if err := TouchLastValidated(database.DB, activation, now); err != nil {
		return nil, err
	}
	LogValidation(licenseKey, fingerprint, model.StatusValid, false, "")

	return &ValidateResult{
		Valid:         true,
		ExpiresAt:     lic.ExpiresAt,
		DaysRemaining: DaysRemaining(lic.ExpiresAt, now),
		CustomerName:  lic.CustomerName,
		CompanyName:   lic.CompanyName,
	}, nil
}

// resolveLicense looks a key up locally, falling back to one remote fetch
// and import when missing (self-healing for wiped local stores). Returns
// (nil, nil) when the key is unknown everywhere.
func (s *LicenseService) resolveLicense(licenseKey string) (*model.License, error) {
	var lic model.License
	result := database.DB.Where("license_key = ?", licenseKey).First(&lic)
	if result.Error == nil {
		return &lic, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	record := s.remote.FetchLicense(licenseKey)
	if record == nil {
		return nil, nil
	}

	if err := ImportRemote(record); err != nil {
		log.Printf("failed to import remote license %s: %v", licenseKey, err)
		return nil, nil
	}

	result = database.DB.Where("license_key = ?", licenseKey).First(&lic)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	log.Printf("imported license %s from remote registry", licenseKey)
	return &lic, nil
}

func logMessage(lic *model.License, rej *Rejection) string {
	if rej.Reason == ReasonMismatch {
		return fmt.Sprintf("License is strictly bound to machine %s", lic.RestrictedFingerprint)
	}
	return ""
}
