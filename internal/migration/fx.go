package migration

import (
	"github.com/loomsite/loomsite/internal/config"
	"github.com/loomsite/loomsite/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are development conveniences; the embedded
			// SQL targets postgres, so let gorm manage the schema there.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		return seed.EnsurePlanCatalog(conn)
	}),
)
