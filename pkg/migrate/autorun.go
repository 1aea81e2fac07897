package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at startup when the dev
// environment opts in with STOREFRONT_AUTO_MIGRATE. The migrations are
// Postgres DDL, so SQLite databases are left alone.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithField(ctx, "driver", cfg.DB.Driver)
	if cfg.DB.Driver == config.DriverSQLite {
		logg.Info(ctx, "migrate.autorun.skipped")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Migrations())
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "migrate.autorun.complete")
	return nil
}
