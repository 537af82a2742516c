package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/models"
)

// InitGormDB opens the sqlite database. An in-memory DSN is pinned to a
// single connection so every query sees the same database.
func InitGormDB(dataSourceName string, log *logger.Logger) (*gorm.DB, error) {
	gormLogger := gormlogger.New(
		log,
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	if strings.Contains(dataSourceName, ":memory:") || strings.Contains(dataSourceName, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	} else {
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			log.Warn("failed to set WAL mode", "error", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		log.Warn("failed to enable foreign keys", "error", err)
	}

	log.Info("database initialized", "dsn", dataSourceName)
	return db, nil
}

// AutoMigrateModels migrates every persisted model.
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.FaceEmbedding{},
		&models.AttendanceRecord{},
		&models.VehiclePlate{},
		&models.PlateDetectionLog{},
		&models.ParkingSpace{},
		&models.ParkingLog{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	return nil
}
