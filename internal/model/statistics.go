package model

// LicenseStats aggregates license counts by state for the admin dashboard.
type LicenseStats struct {
	TotalLicenses    int64 `json:"total_licenses"`
	ActiveLicenses   int64 `json:"active_licenses"`
	ExpiredLicenses  int64 `json:"expired_licenses"`
	BlockedLicenses  int64 `json:"blocked_licenses"`
	TotalActivations int64 `json:"total_activations"`
}
