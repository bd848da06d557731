package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/invoice"
	"ispcrm/internal/domain/notification"
	"ispcrm/internal/domain/order"
)

func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	log.Println("Using SQLite for local development:", dsn)

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{},
	)
}

// Migrate creates or updates the engine tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&contract.Contract{},
		&invoice.Invoice{},
		&invoice.Payment{},
		&order.ServiceOrder{},
		&order.ChecklistItem{},
		&order.ChecklistProgress{},
		&notification.Notification{},
	)
}
