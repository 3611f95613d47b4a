package db

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks the gorm dialector for the configured database type.
func Dialector(cfg config.Config) (gorm.Dialector, error) {
	dbType := strings.ToLower(cfg.DbType)
	switch dbType {
	case "postgres":
		if cfg.DbDsn == "" {
			return nil, fmt.Errorf("DB_DSN must be set for postgres database type")
		}
		return postgres.Open(cfg.DbDsn), nil
	case "mysql":
		if cfg.DbDsn == "" {
			return nil, fmt.Errorf("DB_DSN must be set for mysql database type")
		}
		return mysql.Open(mysqlDSN(cfg.DbDsn)), nil
	case "sqlite":
		if cfg.SqlitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH must be set for sqlite database type")
		}
		return sqlite.Open(sqliteDSN(cfg.SqlitePath)), nil
	default:
		return nil, fmt.Errorf("invalid DB_TYPE: %s. Must be 'postgres', 'mysql' or 'sqlite'", cfg.DbType)
	}
}

// sqliteDSN enables foreign keys so deleting a project cascades to its versions.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys") || strings.Contains(path, "_fk=") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

// mysqlDSN makes UPDATE report matched rather than changed rows, so rewriting a
// version with identical content still counts as found.
func mysqlDSN(dsn string) string {
	if strings.Contains(dsn, "clientFoundRows") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&clientFoundRows=true"
	}
	return dsn + "?clientFoundRows=true"
}

// Open connects to the configured database and runs migrations. The returned handle is
// owned by the caller, who must release it with Close.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	dbType := strings.ToLower(cfg.DbType)
	log.Info("Initializing database connection", zap.String("type", dbType))

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database (%s): %w", dbType, err)
	}
	if dbType == "sqlite" {
		// A single writer connection; statements are serialized anyway.
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	log.Info("Database connection established", zap.String("type", dbType))

	if err := Migrate(gormDB); err != nil {
		Close(gormDB)
		return nil, fmt.Errorf("failed to migrate database (%s): %w", dbType, err)
	}
	log.Info("Database migrations completed")
	return gormDB, nil
}

// newGormLogger reports slow queries and failed statements. Lookups that find
// nothing are expected (FindProjectByName, UpdateVersion) and stay quiet.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Migrate creates or updates the projects and versions tables.
func Migrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(&models.Project{}, &models.Version{})
}

// Close releases the underlying connection pool. Safe to call with nil.
func Close(gormDB *gorm.DB) error {
	if gormDB == nil {
		return nil
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
