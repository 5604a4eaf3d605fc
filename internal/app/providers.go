package app

import (
	"context"
	"fmt"
	"time"

	"guestreport_client/internal/auth"
	"guestreport_client/internal/config"
	"guestreport_client/internal/geography"
	"guestreport_client/internal/platform/database"
	"guestreport_client/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProvideDatabase opens the database, migrates every module's tables and
// returns a cleanup that closes the connection.
func ProvideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { database.CloseGORMDB(db, logger) }

	if err := Migrate(db); err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("Database ready", zap.String("driver", cfg.DBDriver))
	return db, cleanup, nil
}

// Migrate creates or updates all dev backend tables.
func Migrate(db *gorm.DB) error {
	if err := user.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	if err := geography.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate geography: %w", err)
	}
	return nil
}

// ProvideGeographyService builds the geography service and, when
// SEED_DEMO_DATA is on, fills an empty database with demo locations.
func ProvideGeographyService(cfg *config.Config, repo geography.Repository, logger *zap.Logger) (geography.Service, error) {
	svc := geography.NewService(repo, logger)
	if !cfg.SeedDemoData {
		return svc, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := svc.SeedIfEmpty(ctx, geography.DemoData()); err != nil {
		return nil, err
	}
	return svc, nil
}

// ProvideJWKSCache caches Google's signing keys for an hour.
func ProvideJWKSCache() *auth.JWKSCache {
	return auth.NewJWKSCache(auth.JWKSCacheConfig{TTL: time.Hour})
}
