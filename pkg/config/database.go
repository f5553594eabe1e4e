package config

import (
	"fmt"
	"os"
	"time"

	"signalcatch/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OpenDB opens the Postgres connection from environment settings, applies
// pool limits, and runs auto-migration. The handle is returned to the
// caller rather than stashed in a package variable so each process owns
// its connection lifecycle and tests can substitute their own.
func OpenDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserProfile{},
		&models.ReceivingAddress{},
		&models.PaymentOrder{},
		&models.WithdrawalRequest{},
		&models.Project{},
		&models.ProjectContract{},
		&models.KolAccount{},
		&models.Tweet{},
		&models.ExchangeAnnouncement{},
		&models.NewsItem{},
		&models.Signal{},
	)
}

// CloseDB closes the underlying connection pool.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
