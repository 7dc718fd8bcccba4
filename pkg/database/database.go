package database

import (
	"github.com/rotisserie/eris"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jobtrack-backend/pkg/config"
)

// NewConnection opens the configured database. Postgres is the production
// store; sqlite serves local runs and tests.
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	case "sqlite":
		dialector = sqlite.Open(cfg.URL)
	default:
		return nil, eris.Errorf("database: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "database: open %s", cfg.Driver)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows one writer; a single connection also keeps
		// in-memory databases from splitting across the pool.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, eris.Wrap(err, "database: sql handle")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates the tables for the given models.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return eris.Wrap(err, "database: migrate")
	}
	return nil
}
