package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dewasatria11/Device-Qris-Admin-CRUD/config"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Store{},
		&model.Transaction{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	// The heartbeat table is only created here when this service owns it.
	// Otherwise its shape is whatever the deployment's own migrations left
	// behind, and the schema adapter sorts out the rest.
	if cfg.MigrateHeartbeat {
		log.Println("Migrating device heartbeat table...")
		if err := db.AutoMigrate(&model.DeviceHeartbeat{}); err != nil {
			return nil, fmt.Errorf("heartbeat automigrate failed: %w", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}
