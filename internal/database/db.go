package database

import (
	"log"

	"github.com/kumbulanit/stockvelOS-sub001/internal/config"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("database connected, migrations complete")
}

// Migrate runs AutoMigrate for every entity. Split out so tests can run it
// against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshSession{},
		&models.Group{},
		&models.GroupMember{},
		&models.Contribution{},
		&models.SavingsRule{},
		&models.LedgerEntry{},
		&models.GroceryProduct{},
		&models.GroceryPurchase{},
		&models.GroceryPurchaseItem{},
		&models.GroceryDistribution{},
		&models.GroceryDistributionItem{},
		&models.Notification{},
		&models.Document{},
		&models.AuditLog{},
	)
}
