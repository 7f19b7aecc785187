// Package database opens the configured storage backend and applies schema
// migrations. Two drivers are supported: PostgreSQL for deployments and
// SQLite for local or embedded use. Business logic never sees the driver;
// backend-specific query construction lives in internal/search.
package database

import (
	"fmt"
	"time"

	"finsight/internal/config"
	"finsight/internal/logger"
	"finsight/internal/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Manager handles database connections and migrations.
type Manager struct {
	db     *gorm.DB
	driver string
	pgURL  string
}

// NewManager opens a connection using the driver named in cfg.
func NewManager(cfg *config.Config) (*Manager, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	default:
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  postgresDSN(cfg),
			PreferSimpleProtocol: true, // Required for pooled proxies; harmless for direct connections
		}), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Manager{
		db:     db,
		driver: cfg.DBDriver,
		pgURL:  postgresURL(cfg),
	}, nil
}

// Migrate applies the schema. PostgreSQL uses versioned SQL migrations from
// the migrations/ directory; SQLite auto-migrates the models, since the
// embedded backend has no migration history to preserve.
func (m *Manager) Migrate() error {
	log := logger.Get()

	if m.driver == config.DriverSQLite {
		log.Info("Auto-migrating SQLite schema...")
		return m.db.AutoMigrate(
			&models.Category{},
			&models.CategorizationRule{},
			&models.Transaction{},
			&models.CategoryBudget{},
		)
	}

	log.Info("Running database migrations...")

	mig, err := migrate.New("file://migrations", m.pgURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := mig.Close()
		if srcErr != nil {
			log.Warnf("migrate source close error: %v", srcErr)
		}
		if dbErr != nil {
			log.Warnf("migrate database close error: %v", dbErr)
		}
	}()

	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}

// DB returns the underlying GORM database instance.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Driver returns the configured driver name.
func (m *Manager) Driver() string {
	return m.driver
}

func postgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func postgresURL(cfg *config.Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
}
