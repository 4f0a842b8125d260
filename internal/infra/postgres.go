package infra

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitPostgresql(dsn string, production bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if production {
		level = gormlogger.Error
	}

	connectionPool, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return connectionPool, nil
}

func ClosePostgresql(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("error getting database instance", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Error("error closing database connection", zap.Error(err))
	} else {
		log.Info("postgres connection closed")
	}
}

func PingPostgresql(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// HealthCheck reports whether the backing stores are reachable.
type HealthCheck func(ctx context.Context) error
