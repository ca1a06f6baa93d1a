package database

import (
	"time"

	"github.com/pkg/errors"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"municipality/internal/config"
	"municipality/internal/models"
)

// Database wraps the GORM database connection
type Database struct {
	*gorm.DB
}

const memoryDSN = ":memory:"

// Open connects to the database selected by cfg.Driver
func Open(cfg config.DatabaseConfig, debug bool, logger *zap.Logger) (*Database, error) {
	switch cfg.Driver {
	case "memory":
		return NewSQLite(memoryDSN, debug, logger)
	case "sqlite":
		return NewSQLite(cfg.Path, debug, logger)
	default:
		return New(cfg, debug, logger)
	}
}

// New opens a postgres connection and configures the pool
func New(cfg config.DatabaseConfig, debug bool, logger *zap.Logger) (*Database, error) {
	return open(postgres.Open(cfg.DSN()), cfg, debug, logger)
}

// NewSQLite opens an embedded sqlite database at path, or a private
// in-memory one for ":memory:". The pool holds one connection that never
// expires, since an in-memory database lives only as long as its connection.
func NewSQLite(path string, debug bool, logger *zap.Logger) (*Database, error) {
	dsn := path
	if path != memoryDSN {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	cfg := config.DatabaseConfig{MaxOpenConnections: 1, MaxIdleConnections: 1}
	return open(sqlite.Open(dsn), cfg, debug, logger)
}

func open(dialector gorm.Dialector, cfg config.DatabaseConfig, debug bool, logger *zap.Logger) (*Database, error) {
	// Route SQL logs through zap
	logLevel := gormlogger.Warn
	if debug {
		logLevel = gormlogger.Info
	}
	sqlLogger := gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         sqlLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database instance")
	}
	if cfg.MaxOpenConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Database{DB: db}, nil
}

// AutoMigrate creates or updates every table
func (db *Database) AutoMigrate() error {
	err := db.DB.AutoMigrate(
		&models.Account{},
		&models.Citizen{},
		&models.Department{},
		&models.Employee{},
		&models.Request{},
		&models.Payment{},
		&models.Complaint{},
		&models.ComplaintResponse{},
		&models.Notification{},
		&models.Attachment{},
		&models.AuditLog{},
		&models.Announcement{},
		&models.Feedback{},
	)
	return errors.Wrap(err, "failed to migrate schema")
}

// Close closes the database connection
func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
