package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"
	"github.com/faruque-tulsi/license-server/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := util.GenerateToken("admin")
	require.NoError(t, err)
	return token
}

func authed(t *testing.T, method, target string, payload interface{}) *http.Request {
	req := jsonRequest(t, method, target, payload)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	return req
}

func TestHandleAdminLogin(t *testing.T) {
	app := newTestApp(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, database.DB.Create(&model.AdminUser{
		Username:     "admin",
		PasswordHash: string(hash),
	}).Error)

	resp, err := app.Test(jsonRequest(t, "POST", "/admin/login", model.AdminLogin{
		Username: "admin",
		Password: "admin123",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "admin", body["username"])

	// The issued token passes the middleware.
	username, err := util.ValidateToken(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "admin", username)

	resp, err = app.Test(jsonRequest(t, "POST", "/admin/login", model.AdminLogin{
		Username: "admin",
		Password: "wrong",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(jsonRequest(t, "GET", "/admin/licenses", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := jsonRequest(t, "GET", "/admin/licenses", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleGenerateLicense(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name       string
		payload    model.LicenseCreate
		wantStatus int
	}{
		{
			name: "valid",
			payload: model.LicenseCreate{
				CustomerName:          "New Customer",
				ExpiresAt:             time.Now().AddDate(1, 0, 0),
				MaxActivations:        2,
				RestrictedFingerprint: "FP-NEW",
			},
			wantStatus: fiber.StatusCreated,
		},
		{
			name: "missing_customer",
			payload: model.LicenseCreate{
				ExpiresAt:             time.Now().AddDate(1, 0, 0),
				RestrictedFingerprint: "FP-NEW",
			},
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name: "missing_binding",
			payload: model.LicenseCreate{
				CustomerName: "No Binding",
				ExpiresAt:    time.Now().AddDate(1, 0, 0),
			},
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name: "past_expiry",
			payload: model.LicenseCreate{
				CustomerName:          "Past",
				ExpiresAt:             time.Now().AddDate(0, 0, -1),
				RestrictedFingerprint: "FP-NEW",
			},
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(authed(t, "POST", "/admin/generate", tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusCreated {
				body := decodeBody(t, resp)
				key, _ := body["license_key"].(string)
				assert.Regexp(t, `^WB-[0-9A-F]{8}-[0-9A-F]{8}$`, key)

				var lic model.License
				require.NoError(t, database.DB.Where("license_key = ?", key).First(&lic).Error)
				assert.Equal(t, "New Customer", lic.CustomerName)
			}
		})
	}
}

func TestHandleListLicenses(t *testing.T) {
	app := newTestApp(t)
	lic := seedTestLicense(t, nil)
	require.NoError(t, database.DB.Create(&model.Activation{
		LicenseKey:          lic.LicenseKey,
		HardwareFingerprint: "FP-001",
		IsActive:            true,
	}).Error)
	require.NoError(t, database.DB.Create(&model.Activation{
		LicenseKey:          lic.LicenseKey,
		HardwareFingerprint: "FP-OLD",
		IsActive:            false,
	}).Error)

	resp, err := app.Test(authed(t, "GET", "/admin/licenses", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	licenses := body["licenses"].([]interface{})
	require.Len(t, licenses, 1)
	first := licenses[0].(map[string]interface{})
	// Only the active row counts toward the slot limit.
	assert.Equal(t, float64(1), first["activation_count"])
}

func TestHandleListLicensesUpdatedAfter(t *testing.T) {
	app := newTestApp(t)
	seedTestLicense(t, nil)

	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	resp, err := app.Test(authed(t, "GET", "/admin/licenses?updated_after="+future, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["licenses"], 0)

	resp, err = app.Test(authed(t, "GET", "/admin/licenses?updated_after=yesterday", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleBlockUnblock(t *testing.T) {
	app := newTestApp(t)
	lic := seedTestLicense(t, nil)

	resp, err := app.Test(authed(t, "POST", "/admin/block", model.BlockRequest{
		LicenseKey: lic.LicenseKey,
		Message:    "Chargeback received",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var blocked model.License
	require.NoError(t, database.DB.Where("license_key = ?", lic.LicenseKey).First(&blocked).Error)
	assert.True(t, blocked.IsBlocked)
	assert.Equal(t, "Chargeback received", blocked.BlockMessage)

	resp, err = app.Test(authed(t, "POST", "/admin/unblock", model.UnblockRequest{
		LicenseKey: lic.LicenseKey,
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var unblocked model.License
	require.NoError(t, database.DB.Where("license_key = ?", lic.LicenseKey).First(&unblocked).Error)
	assert.False(t, unblocked.IsBlocked)
	assert.Empty(t, unblocked.BlockMessage)

	resp, err = app.Test(authed(t, "POST", "/admin/block", model.BlockRequest{
		LicenseKey: "WB-MISSING0-MISSING1",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleExtendLicense(t *testing.T) {
	app := newTestApp(t)
	lic := seedTestLicense(t, nil)

	newExpiry := time.Now().AddDate(3, 0, 0).UTC().Truncate(time.Second)
	resp, err := app.Test(authed(t, "POST", "/admin/extend", model.ExtendRequest{
		LicenseKey: lic.LicenseKey,
		NewExpiry:  newExpiry,
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var extended model.License
	require.NoError(t, database.DB.Where("license_key = ?", lic.LicenseKey).First(&extended).Error)
	assert.WithinDuration(t, newExpiry, extended.ExpiresAt, time.Second)
}

func TestHandleDeleteLicenseCascades(t *testing.T) {
	app := newTestApp(t)
	lic := seedTestLicense(t, nil)
	require.NoError(t, database.DB.Create(&model.Activation{
		LicenseKey:          lic.LicenseKey,
		HardwareFingerprint: "FP-001",
		IsActive:            true,
	}).Error)

	resp, err := app.Test(authed(t, "DELETE", "/admin/licenses/"+lic.LicenseKey, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var licCount, actCount int64
	database.DB.Model(&model.License{}).Count(&licCount)
	database.DB.Model(&model.Activation{}).Count(&actCount)
	assert.Zero(t, licCount)
	assert.Zero(t, actCount)

	resp, err = app.Test(authed(t, "DELETE", "/admin/licenses/"+lic.LicenseKey, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleDeactivateDevice(t *testing.T) {
	app := newTestApp(t)
	lic := seedTestLicense(t, nil)
	activation := &model.Activation{
		LicenseKey:          lic.LicenseKey,
		HardwareFingerprint: "FP-001",
		IsActive:            true,
	}
	require.NoError(t, database.DB.Create(activation).Error)

	resp, err := app.Test(authed(t, "DELETE", fmt.Sprintf("/admin/activation/%d", activation.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated model.Activation
	require.NoError(t, database.DB.First(&updated, activation.ID).Error)
	assert.False(t, updated.IsActive)

	resp, err = app.Test(authed(t, "DELETE", "/admin/activation/99999", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleStats(t *testing.T) {
	app := newTestApp(t)
	seedTestLicense(t, nil)
	seedTestLicense(t, func(l *model.License) {
		l.LicenseKey = "WB-EXPIRED0-EXPIRED1"
		l.ExpiresAt = time.Now().AddDate(-1, 0, 0)
	})
	seedTestLicense(t, func(l *model.License) {
		l.LicenseKey = "WB-BLOCKED0-BLOCKED1"
		l.IsBlocked = true
	})
	require.NoError(t, database.DB.Create(&model.Activation{
		LicenseKey:          "WB-AAAA1111-BBBB2222",
		HardwareFingerprint: "FP-001",
		IsActive:            true,
	}).Error)

	resp, err := app.Test(authed(t, "GET", "/admin/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(3), body["total_licenses"])
	assert.Equal(t, float64(1), body["active_licenses"])
	assert.Equal(t, float64(1), body["expired_licenses"])
	assert.Equal(t, float64(1), body["blocked_licenses"])
	assert.Equal(t, float64(1), body["total_activations"])
}

func TestHandleValidationLogs(t *testing.T) {
	app := newTestApp(t)
	seedTestLicense(t, nil)

	// Drive a couple of attempts through the public surface.
	resp, err := app.Test(jsonRequest(t, "POST", "/activate", model.ActivateRequest{
		LicenseKey:          "WB-AAAA1111-BBBB2222",
		HardwareFingerprint: "FP-001",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, "POST", "/activate", model.ActivateRequest{
		LicenseKey:          "WB-AAAA1111-BBBB2222",
		HardwareFingerprint: "FP-WRONG",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(authed(t, "GET", "/admin/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["total"])
	logs := body["logs"].([]interface{})
	require.Len(t, logs, 2)
	newest := logs[0].(map[string]interface{})
	assert.Equal(t, "hardware_mismatch", newest["status"])
}
