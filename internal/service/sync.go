package service

import (
	"log"
	"time"

	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"

	"gorm.io/gorm/clause"
)

const syncPageSize = 200

// Syncer reconciles the local license store with the remote registry. Pushes
// are best-effort: a failed license is logged and skipped, never retried
// within the same cycle.
type Syncer struct {
	remote *RemoteClient
	sheets *SheetMirror
}

func NewSyncer(remote *RemoteClient, sheets *SheetMirror) *Syncer {
	return &Syncer{remote: remote, sheets: sheets}
}

// PushOne sends a single license to the remote registry. Failures are
// logged and swallowed.
func (s *Syncer) PushOne(lic *model.License) bool {
	if err := s.remote.PushLicense(ToRemoteRecord(lic)); err != nil {
		log.Printf("failed to push license %s: %v", lic.LicenseKey, err)
		return false
	}
	return true
}

// PushAll pushes every local license independently and reports how many
// succeeded. One failure never aborts the rest.
func (s *Syncer) PushAll() (pushed, total int) {
	for offset := 0; ; offset += syncPageSize {
		var page []model.License
		err := database.DB.Order("id").Offset(offset).Limit(syncPageSize).Find(&page).Error
		if err != nil {
			log.Printf("sync aborted, failed to list licenses: %v", err)
			return pushed, total
		}
		if len(page) == 0 {
			return pushed, total
		}

		for i := range page {
			total++
			if s.PushOne(&page[i]) {
				pushed++
			}
		}
	}
}

// RunPeriodic pushes all licenses on a fixed interval after a startup
// delay. Intended to run on its own goroutine for the life of the process.
func (s *Syncer) RunPeriodic(startDelay, interval time.Duration) {
	time.Sleep(startDelay)
	for {
		log.Println("starting scheduled full sync to remote")
		pushed, total := s.PushAll()
		log.Printf("scheduled sync complete: pushed %d/%d licenses", pushed, total)

		if err := s.sheets.MirrorAll(); err != nil {
			log.Printf("sheet mirror failed: %v", err)
		}

		time.Sleep(interval)
	}
}

// ImportRemote upserts a remote-fetched record into the local store. On
// conflict only customer_name and expires_at follow the remote; block state
// and activations stay locally authoritative.
func ImportRemote(record *model.RemoteLicense) error {
	lic := &model.License{
		LicenseKey:            record.LicenseKey,
		CustomerName:          record.CustomerName,
		CompanyName:           record.CompanyName,
		Email:                 record.Email,
		Phone:                 record.Phone,
		MaxActivations:        record.MaxActivations,
		RestrictedFingerprint: record.RestrictedFingerprint,
		Notes:                 record.Notes,
		CreatedBy:             record.CreatedBy,
	}
	if lic.MaxActivations < 1 {
		lic.MaxActivations = 1
	}
	if lic.CreatedBy == "" {
		lic.CreatedBy = "system_sync"
	}

	expiresAt, err := parseRemoteTime(record.ExpiresAt)
	if err != nil {
		return err
	}
	lic.ExpiresAt = expiresAt

	if generatedAt, err := parseRemoteTime(record.GeneratedAt); err == nil {
		lic.GeneratedAt = generatedAt
	}

	return database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "license_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"customer_name", "expires_at"}),
	}).Create(lic).Error
}

// ToRemoteRecord converts a license to its wire form, timestamps as
// ISO-8601 text.
func ToRemoteRecord(lic *model.License) *model.RemoteLicense {
	return &model.RemoteLicense{
		LicenseKey:            lic.LicenseKey,
		CustomerName:          lic.CustomerName,
		CompanyName:           lic.CompanyName,
		Email:                 lic.Email,
		Phone:                 lic.Phone,
		ExpiresAt:             lic.ExpiresAt.Format(time.RFC3339),
		MaxActivations:        lic.MaxActivations,
		RestrictedFingerprint: lic.RestrictedFingerprint,
		Notes:                 lic.Notes,
		IsBlocked:             lic.IsBlocked,
		CreatedBy:             lic.CreatedBy,
		GeneratedAt:           lic.GeneratedAt.Format(time.RFC3339),
		UpdatedAt:             lic.UpdatedAt.Format(time.RFC3339),
	}
}

func parseRemoteTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	// Registries that store timestamps without a zone send them bare.
	return time.Parse("2006-01-02T15:04:05", value)
}
