package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"karvia/logger"
	"karvia/models"
)

// Open opens the database connection.
// For "memory" (or an empty DSN) it uses an in-memory SQLite database;
// for other DSNs it assumes a file-based SQLite database.
func Open(dsn string, base *zap.Logger) (*gorm.DB, error) {
	log := logger.Component(base, "Database")

	// GORM logger writes through zap
	gormLogger := gormlogger.New(
		logger.StdLog(base, "gorm"),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormConfig := &gorm.Config{Logger: gormLogger}

	var (
		db  *gorm.DB
		err error
	)
	if dsn == "memory" || dsn == "" {
		log.Infof("Initializing in-memory SQLite database (DSN: 'memory' or empty).")
		db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), gormConfig)
	} else {
		log.Infof("Initializing file-based SQLite database at DSN: '%s'.", dsn)
		dbDir := filepath.Dir(dsn)
		if dbDir != "." && dbDir != "/" {
			if _, statErr := os.Stat(dbDir); os.IsNotExist(statErr) {
				log.Infof("Database directory '%s' does not exist, attempting to create.", dbDir)
				if mkdirErr := os.MkdirAll(dbDir, 0o755); mkdirErr != nil {
					log.Errorf("Failed to create database directory '%s': %v", dbDir, mkdirErr)
					return nil, fmt.Errorf("failed to create database directory '%s': %w", dbDir, mkdirErr)
				}
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	}
	if err != nil {
		log.Errorf("Failed to connect to database (DSN: '%s'): %v", dsn, err)
		return nil, fmt.Errorf("failed to connect to database (DSN: '%s'): %w", dsn, err)
	}

	// SQLite allows a single writer; serialize through one connection.
	if sqlDB, sqlErr := db.DB(); sqlErr == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	log.Infof("Database connection established successfully.")
	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB, base *zap.Logger) error {
	log := logger.Component(base, "Database")
	err := db.AutoMigrate(
		&models.ReadinessAssessment{},
		&models.UserJourneyState{},
		&models.Goal{},
		&models.Task{},
	)
	if err != nil {
		log.Errorf("Failed to auto-migrate database schema: %v", err)
		return fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}
	log.Infof("Database schema migrated.")
	return nil
}
