package handler

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"
	"github.com/faruque-tulsi/license-server/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HandleGenerateLicense creates a new license key. New licenses must carry
// a hardware binding.
func HandleGenerateLicense(c *fiber.Ctx) error {
	input := new(model.LicenseCreate)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if input.CustomerName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "customer_name is required",
		})
	}
	if input.RestrictedFingerprint == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "restricted_fingerprint is required",
		})
	}
	if input.ExpiresAt.IsZero() || !input.ExpiresAt.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "expires_at must be in the future",
		})
	}
	if input.MaxActivations < 1 {
		input.MaxActivations = 1
	}

	admin, _ := c.Locals("admin").(string)

	lic := &model.License{
		LicenseKey:            generateLicenseKey(),
		CustomerName:          input.CustomerName,
		CompanyName:           input.CompanyName,
		Email:                 input.Email,
		Phone:                 input.Phone,
		ExpiresAt:             input.ExpiresAt,
		MaxActivations:        input.MaxActivations,
		RestrictedFingerprint: input.RestrictedFingerprint,
		Notes:                 input.Notes,
		CreatedBy:             admin,
	}

	if err := database.DB.Create(lic).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create license",
		})
	}

	// Best-effort propagation; the periodic sync catches anything missed.
	go syncer.PushOne(lic)
	go sheetMirror.MirrorOne(lic)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"license_key": lic.LicenseKey,
		"id":          lic.ID,
		"message":     "License generated successfully",
	})
}

// HandleListLicenses lists licenses with pagination and an optional
// updated-after filter, newest change first.
func HandleListLicenses(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	db := database.DB.Model(&model.License{})
	if after := c.Query("updated_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "updated_after must be RFC3339",
			})
		}
		db = db.Where("COALESCE(updated_at, generated_at) > ?", t)
	}

	var licenses []model.License
	err := db.Order("COALESCE(updated_at, generated_at) DESC").
		Offset(offset).Limit(limit).Find(&licenses).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list licenses",
		})
	}

	type licenseWithCount struct {
		model.License
		ActivationCount int64 `json:"activation_count"`
	}

	out := make([]licenseWithCount, 0, len(licenses))
	for _, lic := range licenses {
		var count int64
		database.DB.Model(&model.Activation{}).
			Where("license_key = ? AND is_active = ?", lic.LicenseKey, true).
			Count(&count)
		out = append(out, licenseWithCount{License: lic, ActivationCount: count})
	}

	return c.JSON(fiber.Map{
		"licenses": out,
		"total":    len(out),
	})
}

// HandleGetLicense returns a license with all of its activations.
func HandleGetLicense(c *fiber.Ctx) error {
	key := c.Params("key")

	var lic model.License
	result := database.DB.Where("license_key = ?", key).First(&lic)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "License not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load license",
		})
	}

	var activations []model.Activation
	if err := database.DB.Where("license_key = ?", key).
		Order("activated_at DESC").Find(&activations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load activations",
		})
	}

	return c.JSON(fiber.Map{
		"license":     lic,
		"activations": activations,
	})
}

// HandleBlockLicense blocks a license with an optional message.
func HandleBlockLicense(c *fiber.Ctx) error {
	input := new(model.BlockRequest)
	if err := c.BodyParser(input); err != nil || input.LicenseKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "license_key is required",
		})
	}

	message := input.Message
	if message == "" {
		message = "License has been blocked by administrator"
	}

	result := database.DB.Model(&model.License{}).
		Where("license_key = ?", input.LicenseKey).
		Updates(map[string]interface{}{
			"is_blocked":    true,
			"block_message": message,
		})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to block license",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "License not found",
		})
	}

	return c.JSON(fiber.Map{"success": true, "message": "License blocked"})
}

// HandleUnblockLicense clears the block flag and message.
func HandleUnblockLicense(c *fiber.Ctx) error {
	input := new(model.UnblockRequest)
	if err := c.BodyParser(input); err != nil || input.LicenseKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "license_key is required",
		})
	}

	result := database.DB.Model(&model.License{}).
		Where("license_key = ?", input.LicenseKey).
		Updates(map[string]interface{}{
			"is_blocked":    false,
			"block_message": "",
		})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to unblock license",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "License not found",
		})
	}

	return c.JSON(fiber.Map{"success": true, "message": "License unblocked"})
}

// HandleExtendLicense moves the expiry date and propagates the change to
// the remote registry best-effort.
func HandleExtendLicense(c *fiber.Ctx) error {
	input := new(model.ExtendRequest)
	if err := c.BodyParser(input); err != nil || input.LicenseKey == "" || input.NewExpiry.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "license_key and new_expiry are required",
		})
	}

	result := database.DB.Model(&model.License{}).
		Where("license_key = ?", input.LicenseKey).
		Update("expires_at", input.NewExpiry)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to extend license",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "License not found",
		})
	}

	go remoteClient.PatchExpiry(input.LicenseKey, input.NewExpiry)

	return c.JSON(fiber.Map{"success": true, "message": "License expiry extended"})
}

// HandleDeleteLicense removes a license and all of its activations, then
// propagates the deletion to the remote registry best-effort.
func HandleDeleteLicense(c *fiber.Ctx) error {
	key := c.Params("key")

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("license_key = ?", key).Delete(&model.Activation{}).Error; err != nil {
			return err
		}
		result := tx.Where("license_key = ?", key).Delete(&model.License{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "License not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete license",
		})
	}

	go remoteClient.DeleteLicense(key)

	return c.JSON(fiber.Map{"success": true, "message": "License deleted successfully"})
}

// HandleListActivations lists the latest activations joined with license
// customer data.
func HandleListActivations(c *fiber.Ctx) error {
	type activationRow struct {
		model.Activation
		CustomerName string    `json:"customer_name"`
		CompanyName  string    `json:"company_name"`
		ExpiresAt    time.Time `json:"expires_at"`
	}

	var rows []activationRow
	err := database.DB.Table("activations").
		Select("activations.*, licenses.customer_name, licenses.company_name, licenses.expires_at").
		Joins("JOIN licenses ON licenses.license_key = activations.license_key").
		Order("activations.activated_at DESC").
		Limit(100).
		Scan(&rows).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list activations",
		})
	}

	return c.JSON(fiber.Map{"activations": rows})
}

// HandleDeactivateDevice frees one activation slot by flipping is_active.
// The row stays for the audit history.
func HandleDeactivateDevice(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid activation id",
		})
	}

	result := database.DB.Model(&model.Activation{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deactivate device",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Activation not found",
		})
	}

	return c.JSON(fiber.Map{"success": true, "message": "Device deactivated"})
}

// HandleStats aggregates license counts by state.
func HandleStats(c *fiber.Ctx) error {
	now := time.Now()
	stats := &model.LicenseStats{}
	db := database.DB

	queries := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalLicenses, db.Model(&model.License{})},
		{&stats.ActiveLicenses, db.Model(&model.License{}).Where("expires_at > ? AND is_blocked = ?", now, false)},
		{&stats.ExpiredLicenses, db.Model(&model.License{}).Where("expires_at <= ?", now)},
		{&stats.BlockedLicenses, db.Model(&model.License{}).Where("is_blocked = ?", true)},
		{&stats.TotalActivations, db.Model(&model.Activation{}).Where("is_active = ?", true)},
	}
	for _, q := range queries {
		if err := q.query.Count(q.dest).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute statistics",
			})
		}
	}

	return c.JSON(stats)
}

// HandleValidationLogs pages through the validation audit trail.
func HandleValidationLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	logs, total, err := service.GetValidationLogs(c.Query("license_key"), page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load validation logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  pageSize,
	})
}

// HandleExportSheet mirrors the full license table to the configured
// Google Sheet.
func HandleExportSheet(c *fiber.Ctx) error {
	if sheetMirror == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sheet mirror is not configured",
		})
	}

	if err := sheetMirror.MirrorAll(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Sheet export failed: %v", err),
		})
	}

	return c.JSON(fiber.Map{"success": true, "message": "Licenses exported"})
}

// generateLicenseKey returns a fresh WB-XXXXXXXX-XXXXXXXX key.
func generateLicenseKey() string {
	a := uuid.New()
	b := uuid.New()
	return fmt.Sprintf("WB-%s-%s",
		strings.ToUpper(hex.EncodeToString(a[:4])),
		strings.ToUpper(hex.EncodeToString(b[:4])))
}
