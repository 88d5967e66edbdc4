package db

import (
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nssnepal/membership/internal/models"
)

var conn *gorm.DB

// DSN appends the pragmas every connection needs to a sqlite file path.
func DSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// Open connects to the sqlite file at path and migrates the schema.
func Open(path string, silent bool) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	gdb, err := gorm.Open(sqlite.Open(DSN(path)), cfg)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates every table plus the indexes GORM doesn't derive from tags.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.Member{},
		&models.Child{},
		&models.MembershipFee{},
		&models.Payment{},
		&models.Counter{},
		&models.User{},
		&models.UserProfile{},
		&models.Session{},
	); err != nil {
		return err
	}

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_member_type_valid ON members(membership_type, is_active, membership_valid_until)",
		"CREATE INDEX IF NOT EXISTS idx_member_join      ON members(join_date)",
		"CREATE INDEX IF NOT EXISTS idx_payment_mode     ON payments(payment_mode, payment_date)",
	} {
		if err := gdb.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Init opens the application database and keeps it as the shared handle.
func Init(path string) error {
	gdb, err := Open(path, false)
	if err != nil {
		return err
	}
	conn = gdb
	slog.Info("database ready", "driver", "sqlite", "path", path)
	return nil
}

// Use swaps the shared handle (tests point it at a temp database).
func Use(gdb *gorm.DB) {
	conn = gdb
}

func Conn() *gorm.DB {
	return conn
}
