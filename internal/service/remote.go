package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/faruque-tulsi/license-server/internal/model"
)

// OverrideResult is the remote registry's answer to "is this key allowed".
type OverrideResult struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`
}

// RemoteClient talks to the remote license registry. All calls carry a
// bounded timeout; callers decide what a transport failure means.
type RemoteClient struct {
	baseURL    string
	adminToken string
	failClosed bool
	http       *http.Client
}

func NewRemoteClient(baseURL, adminToken string, timeout time.Duration, failClosed bool) *RemoteClient {
	return &RemoteClient{
		baseURL:    baseURL,
		adminToken: adminToken,
		failClosed: failClosed,
		http:       &http.Client{Timeout: timeout},
	}
}

// CheckOverride asks the remote whether a license key is currently allowed.
// On any transport or decode failure the configured policy applies:
// fail-open (allowed) by default, fail-closed when so configured.
func (r *RemoteClient) CheckOverride(licenseKey string) OverrideResult {
	if r == nil || r.baseURL == "" {
		return OverrideResult{Allowed: true}
	}

	endpoint := fmt.Sprintf("%s/validate?license_key=%s", r.baseURL, url.QueryEscape(licenseKey))
	resp, err := r.http.Post(endpoint, "application/json", nil)
	if err != nil {
		return r.failPolicy(err)
	}
	defer resp.Body.Close()

	var result OverrideResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return r.failPolicy(err)
	}
	return result
}

func (r *RemoteClient) failPolicy(err error) OverrideResult {
	log.Printf("remote override check failed: %v", err)
	if r.failClosed {
		return OverrideResult{Allowed: false, Message: "License authority unreachable"}
	}
	return OverrideResult{Allowed: true}
}

// FetchLicense retrieves a license record by key from the remote registry.
// Returns nil when the remote does not know the key or is unreachable.
func (r *RemoteClient) FetchLicense(licenseKey string) *model.RemoteLicense {
	if r == nil || r.baseURL == "" {
		return nil
	}

	resp, err := r.http.Get(fmt.Sprintf("%s/license/%s", r.baseURL, url.PathEscape(licenseKey)))
	if err != nil {
		log.Printf("remote fetch failed for %s: %v", licenseKey, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var record model.RemoteLicense
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		log.Printf("remote fetch returned malformed record for %s: %v", licenseKey, err)
		return nil
	}
	return &record
}

// PushLicense sends one license record to the remote registry.
func (r *RemoteClient) PushLicense(record *model.RemoteLicense) error {
	if r == nil || r.baseURL == "" || r.adminToken == "" {
		return nil
	}

	body, err := json.Marshal(record)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, r.baseURL+"/sync", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.adminToken)

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote sync rejected %s: status %d", record.LicenseKey, resp.StatusCode)
	}
	return nil
}

// PatchExpiry propagates an expiry change to the remote registry.
func (r *RemoteClient) PatchExpiry(licenseKey string, newExpiry time.Time) error {
	if r == nil || r.baseURL == "" || r.adminToken == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"expires_at": newExpiry.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPatch,
		fmt.Sprintf("%s/license/%s", r.baseURL, url.PathEscape(licenseKey)), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.adminToken)

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// DeleteLicense propagates a deletion to the remote registry.
func (r *RemoteClient) DeleteLicense(licenseKey string) error {
	if r == nil || r.baseURL == "" || r.adminToken == "" {
		return nil
	}

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/license/%s", r.baseURL, url.PathEscape(licenseKey)), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.adminToken)

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
