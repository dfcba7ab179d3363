package database

import (
	"github.com/faruque-tulsi/license-server/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func InitTestDB() {
	var err error
	DB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect test database")
	}

	err = DB.AutoMigrate(
		&model.AdminUser{},
		&model.License{},
		&model.Activation{},
		&model.ValidationLog{},
	)
	if err != nil {
		panic("failed to migrate test database")
	}
}

// ResetTestDB clears all tables between test cases.
func ResetTestDB() {
	DB.Exec("DELETE FROM validation_logs")
	DB.Exec("DELETE FROM activations")
	DB.Exec("DELETE FROM licenses")
	DB.Exec("DELETE FROM admin_users")
}

func CleanTestDB() {
	sqlDB, err := DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
