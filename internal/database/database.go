package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Raed-Bourouis/VoiceUP/internal/config"
	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// Connect opens the hosted Postgres instance and tunes the pool. The
// handle is returned, not stored; callers inject it where needed.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: underlying sql.DB: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	logger.Info().Msg("Connected to PostgreSQL with connection pooling (max: 25, idle: 10)")
	return db, nil
}

// AutoMigrate creates or updates the schema for every record kind.
// The hosted deployment owns the production schema; this runs against
// development databases and the sqlite test plane.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.Chat{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.MessageRead{},
		&models.Friendship{},
		&models.Device{},
	)
}
