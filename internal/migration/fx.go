package migration

import (
	"github.com/platefulhq/plateful/internal/config"
	"github.com/platefulhq/plateful/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if err := seed.EnsureAdminUser(conn); err != nil {
			return err
		}
		if cfg.Environment != "production" {
			return seed.EnsureDemoMenu(conn)
		}
		return nil
	}),
)
