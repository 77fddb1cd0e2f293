package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string

	// Postgres
	DSN          string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	MaxOpenConns int

	// SQLite
	Path string
}

// Open connects to the configured store and migrates the schema.
func Open(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	var gdb *gorm.DB
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverPostgres, "postgresql":
		svc, err := NewPostgresService(logg, cfg)
		if err != nil {
			return nil, err
		}
		gdb = svc.DB()
	case DriverSQLite, "sqlite3":
		svc, err := NewSQLiteService(logg, cfg.Path)
		if err != nil {
			return nil, err
		}
		gdb = svc.DB()
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err := AutoMigrateAll(gdb); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := EnsureIndexes(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
