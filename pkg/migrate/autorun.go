package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/librarydesk-backend/pkg/config"
	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
	"gorm.io/gorm"
)

// AutoMigrateModels creates the circulation tables straight from the gorm
// models. Used for sqlite databases and in tests.
func AutoMigrateModels(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	return conn.AutoMigrate(&models.Book{}, &models.Member{}, &models.Loan{})
}

// MaybeRunDev migrates the schema on boot. SQLite databases are always
// auto-migrated; Postgres only runs goose when the app is in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.Driver == config.DriverSQLite {
		ctx = logg.WithField(ctx, "driver", cfg.DB.Driver)
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := AutoMigrateModels(client.DB()); err != nil {
			return fmt.Errorf("auto-migrating sqlite: %w", err)
		}
		return nil
	}

	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
