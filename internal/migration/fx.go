package migration

import (
	branchdomain "github.com/smallbiznis/mercato/internal/branch/domain"
	"github.com/smallbiznis/mercato/internal/config"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	plandomain "github.com/smallbiznis/mercato/internal/plan/domain"
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
			return RunMigrations(sqlDB)
		}

		// Non-postgres dialects (sqlite dev mode, mysql) derive the
		// schema from the models.
		return conn.AutoMigrate(
			&fiscaldomain.FiscalConfiguration{},
			&plandomain.Plan{},
			&branchdomain.Branch{},
		)
	}),
)
