package repositories

import (
	"github.com/anonto42/warbler/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table Warbler uses in the relational database
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Follow{},
		&models.Like{},
		&models.Activity{},
	)
}
