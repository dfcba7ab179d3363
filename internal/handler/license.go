package handler

import (
	"errors"

	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"
	"github.com/faruque-tulsi/license-server/internal/service"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	licenseService *service.LicenseService
	syncer         *service.Syncer
	remoteClient   *service.RemoteClient
	sheetMirror    *service.SheetMirror
)

// Init wires the handler package to its services. Must run before routes
// are registered.
func Init(remote *service.RemoteClient, mirror *service.SheetMirror) {
	remoteClient = remote
	sheetMirror = mirror
	licenseService = service.NewLicenseService(remote)
	syncer = service.NewSyncer(remote, mirror)
}

// HandleActivate activates a license on a device.
func HandleActivate(c *fiber.Ctx) error {
	input := new(model.ActivateRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if input.LicenseKey == "" || input.HardwareFingerprint == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "license_key and hardware_fingerprint are required",
		})
	}

	result, err := licenseService.Activate(input.LicenseKey, input.HardwareFingerprint, input.DeviceName)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Invalid license key. Please check and try again.",
			})
		}
		var rej *service.RejectionError
		if errors.As(err, &rej) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":  rej.Message,
				"reason": rej.Reason,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Activation failed",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    result.Message,
		"expires_at": result.ExpiresAt,
	})
}

// HandleValidate validates a license on a device. Rejections other than an
// unknown key come back inside a 200 envelope with valid=false.
func HandleValidate(c *fiber.Ctx) error {
	input := new(model.ValidateRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if input.LicenseKey == "" || input.HardwareFingerprint == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "license_key and hardware_fingerprint are required",
		})
	}

	result, err := licenseService.Validate(input.LicenseKey, input.HardwareFingerprint)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "License not found or has been deleted",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Validation failed",
		})
	}

	if !result.Valid {
		body := fiber.Map{
			"valid":      false,
			"is_blocked": result.IsBlocked,
			"reason":     result.Reason,
			"message":    result.Message,
		}
		if result.Reason == service.ReasonExpired {
			body["expired_at"] = result.ExpiresAt
		}
		return c.JSON(body)
	}

	return c.JSON(fiber.Map{
		"valid":          true,
		"is_blocked":     false,
		"expires_at":     result.ExpiresAt,
		"days_remaining": result.DaysRemaining,
		"customer_name":  result.CustomerName,
		"company_name":   result.CompanyName,
	})
}

// HandleLicenseInfo returns the public subset of a license record.
func HandleLicenseInfo(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "License key is required",
		})
	}

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

	return c.JSON(fiber.Map{
		"customer_name": lic.CustomerName,
		"company_name":  lic.CompanyName,
		"expires_at":    lic.ExpiresAt,
		"is_blocked":    lic.IsBlocked,
	})
}

func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "license-server",
	})
}
