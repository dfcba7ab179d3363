package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all server configuration, populated from the environment
// (optionally seeded from a .env file).
type Config struct {
	Port   string `envconfig:"PORT" default:"8000"`
	DBPath string `envconfig:"DB_PATH" default:"data/license.db"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"change-me-in-production"`

	// Remote registry. Sync stays disabled until an admin token is set.
	RemoteURL        string        `envconfig:"REMOTE_URL" default:""`
	RemoteAdminToken string        `envconfig:"REMOTE_ADMIN_TOKEN" default:""`
	RemoteTimeout    time.Duration `envconfig:"REMOTE_TIMEOUT" default:"10s"`
	// When true an unreachable remote rejects instead of failing open.
	RemoteFailClosed bool          `envconfig:"REMOTE_FAIL_CLOSED" default:"false"`
	SyncInterval     time.Duration `envconfig:"SYNC_INTERVAL" default:"15m"`
	SyncStartDelay   time.Duration `envconfig:"SYNC_START_DELAY" default:"5s"`

	// Optional Google Sheets mirror of the license table.
	SheetSyncEnabled bool   `envconfig:"SHEET_SYNC_ENABLED" default:"false"`
	SheetCredentials string `envconfig:"SHEET_CREDENTIALS" default:"credentials.json"`
	SheetID          string `envconfig:"SHEET_ID" default:""`
	SheetName        string `envconfig:"SHEET_NAME" default:"Licenses"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment only")
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		log.Fatal("failed to parse configuration: ", err)
	}
	return cfg
}

// SyncEnabled reports whether pushes to the remote registry are configured.
func (c *Config) SyncEnabled() bool {
	return c.RemoteURL != "" && c.RemoteAdminToken != ""
}
