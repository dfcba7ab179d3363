package service

import (
	"log"

	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"
)

// LogValidation appends one audit record for an activate/validate attempt.
// Audit failures must never fail the request itself.
func LogValidation(licenseKey, fingerprint, status string, remoteOverride bool, message string) {
	entry := &model.ValidationLog{
		LicenseKey:          licenseKey,
		HardwareFingerprint: fingerprint,
		Status:              status,
		RemoteOverride:      remoteOverride,
		Message:             message,
	}
	if err := database.DB.Create(entry).Error; err != nil {
		log.Printf("failed to write validation log for %s: %v", licenseKey, err)
	}
}

// GetValidationLogs returns the audit trail, newest first, optionally
// filtered by license key.
func GetValidationLogs(licenseKey string, page, pageSize int) ([]model.ValidationLog, int64, error) {
	var logs []model.ValidationLog
	var total int64

	db := database.DB.Model(&model.ValidationLog{})
	if licenseKey != "" {
		db = db.Where("license_key = ?", licenseKey)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := db.Order("id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
