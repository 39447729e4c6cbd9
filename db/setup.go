package db

import (
	"context"
	"fmt"
	"time"

	"github.com/itsdone-dev/itsdone/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres", "postgresql", "":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

const slowQueryThreshold = 200 * time.Millisecond

// newLogger writes gorm warnings, slow queries and failures through log.
// Missing rows are expected lookups and stay silent.
func newLogger(log *zap.Logger) logger.Interface {
	writer, err := zap.NewStdLogAt(log.WithOptions(zap.AddCallerSkip(2)), zap.WarnLevel)
	if err != nil {
		writer = zap.NewStdLog(log)
	}

	return logger.New(writer, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open connects to the database without touching the package-level handle.
func Open(driver, dsn string) (*gorm.DB, error) {
	d, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(d, &gorm.Config{
		Logger:         newLogger(zap.L()),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" || driver == "sqlite3" {
		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}

	return conn, nil
}

func ConnectDatabase(driver, dsn string) error {
	var err error

	DB, err = Open(driver, dsn)

	if err != nil {
		return err
	}

	zap.L().Info("database connected", zap.String("driver", driver))

	return nil
}

// Migrate brings every table of conn up to date with the models.
func Migrate(conn *gorm.DB) error {
	for _, model := range models.All() {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	return nil
}

func MigrateDatabase() error {
	return Migrate(DB)
}

// Ping reports whether the database answers.
func Ping(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	DB = nil
	return sqlDB.Close()
}
