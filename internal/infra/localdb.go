package infra

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewLocalDB opens the device-resident SQLite database used by the local
// store. WAL keeps reads open while the sync cycle writes; busy_timeout
// avoids spurious SQLITE_BUSY from the single writer re-entering.
func NewLocalDB(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// The local store is single-writer from the device's own sync process.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
