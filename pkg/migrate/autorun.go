package migrate

import (
	"context"
	"fmt"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at boot when ROCKETSHOP_ENV=dev and
// auto-migrate is on. Other environments run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB, cfg.DB.Driver)
	if err != nil {
		return err
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"dialect": string(Dialect(cfg.DB.Driver)), "applied": applied}), "dev migrations applied")
	return nil
}
