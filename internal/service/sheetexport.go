package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetMirror keeps a Google Sheet copy of the license table for ops
// visibility. A nil mirror is a no-op, so callers never need to gate on
// whether the feature is configured.
type SheetMirror struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetMirror(enabled bool, credentialPath, spreadsheetID, sheetName string) (*SheetMirror, error) {
	if !enabled {
		return nil, nil
	}

	ctx := context.Background()

	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, err
	}

	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}

	return &SheetMirror{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// MirrorOne writes or updates the sheet row for a single license.
func (s *SheetMirror) MirrorOne(lic *model.License) error {
	if s == nil {
		return nil
	}

	rowIndex, err := s.findRow(lic.LicenseKey)
	if err != nil {
		return err
	}

	values := &sheets.ValueRange{Values: [][]interface{}{licenseRow(lic)}}

	if rowIndex > 0 {
		rangeData := fmt.Sprintf("%s!A%d:I%d", s.sheetName, rowIndex, rowIndex)
		_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, values).
			ValueInputOption("USER_ENTERED").Do()
	} else {
		_, err = s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A2:I", values).
			ValueInputOption("USER_ENTERED").Do()
	}
	return err
}

// MirrorAll rewrites the sheet body from the full license table.
func (s *SheetMirror) MirrorAll() error {
	if s == nil {
		return nil
	}

	var licenses []model.License
	if err := database.DB.Order("id").Find(&licenses).Error; err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(licenses))
	for i := range licenses {
		rows = append(rows, licenseRow(&licenses[i]))
	}

	if _, err := s.service.Spreadsheets.Values.Clear(
		s.spreadsheetID, s.sheetName+"!A2:I", &sheets.ClearValuesRequest{}).Do(); err != nil {
		return err
	}

	_, err := s.service.Spreadsheets.Values.Append(
		s.spreadsheetID,
		s.sheetName+"!A2:I",
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("USER_ENTERED").Do()
	return err
}

// findRow returns the 1-based sheet row holding the key, 0 when absent.
func (s *SheetMirror) findRow(licenseKey string) (int, error) {
	rangeToSearch := fmt.Sprintf("%s!A2:A", s.sheetName)
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, rangeToSearch).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) > 0 && row[0] == licenseKey {
			return i + 2, nil
		}
	}
	return 0, nil
}

func licenseRow(lic *model.License) []interface{} {
	return []interface{}{
		lic.LicenseKey,
		lic.CustomerName,
		lic.CompanyName,
		lic.ExpiresAt.Format(time.RFC3339),
		lic.MaxActivations,
		lic.IsBlocked,
		lic.CreatedBy,
		lic.GeneratedAt.Format(time.RFC3339),
		lic.UpdatedAt.Format(time.RFC3339),
	}
}
