package sqlite

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type volunteerRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null;index"`
	Address     string `gorm:"not null"`
	City        string `gorm:"not null"`
	State       string `gorm:"size:2;not null"`
	ZipCode     string `gorm:"size:10;not null"`
	PhoneNumber string `gorm:"size:12;not null"`
}

func (volunteerRow) TableName() string { return "volunteer" }

type taskRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"not null"`
	Details     string `gorm:"not null"`
	DateNeeded  string `gorm:"not null"`
	Status      string `gorm:"not null;default:Open"`
	VolunteerID *int64 `gorm:"index"`
}

func (taskRow) TableName() string { return "task" }

// Open connects to the SQLite database at dsn and creates the schema.
// Use "file:name?mode=memory&cache=shared" for an in-memory database.
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	// SQLite serialises writers; a single connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&volunteerRow{}, &taskRow{}); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	logger.Info("connected to sqlite", zap.String("dsn", dsn))
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB, logger *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
	if logger != nil {
		logger.Info("sqlite connection closed")
	}
}

func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(replacer.Replace(term)) + "%"
}
