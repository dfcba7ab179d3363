package database

import (
	"log"
	"os"
	"path/filepath"

	"github.com/faruque-tulsi/license-server/internal/model"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(dbPath string) {
	var err error
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("failed to create data directory: ", err)
		}
	}

	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}

	err = DB.AutoMigrate(
		&model.AdminUser{},
		&model.License{},
		&model.Activation{},
		&model.ValidationLog{},
	)
	if err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	seedAdminUser()
}

// seedAdminUser creates the default admin account on first start.
func seedAdminUser() {
	var count int64
	DB.Model(&model.AdminUser{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash default admin password: ", err)
	}

	admin := &model.AdminUser{
		Username:     "admin",
		PasswordHash: string(hash),
	}
	if err := DB.Create(admin).Error; err != nil {
		log.Fatal("failed to create default admin user: ", err)
	}
	log.Println("created default admin user")
}
