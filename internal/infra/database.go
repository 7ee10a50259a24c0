package infra

import (
	"fmt"

	"github.com/edcadet10/tikes/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes the server-side GORM connection backed by pgx and
// runs AutoMigrate. The composite unique index on (business_id, local_id) per
// syncable table is what makes upsert-by-localId an atomic check-then-write:
// at most one server row per business per logical key even under concurrent
// pushes, and one tenant's localIds can never address another tenant's rows.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.Business{},
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Customer{},
		&model.Sale{},
		&model.SaleItem{},
		&model.Payment{},
		&model.CreditTransaction{},
		&model.SyncAlert{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return db, nil
}
