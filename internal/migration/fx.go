package migration

import (
	"strings"

	"github.com/smallbiznis/passage/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module runs the embedded migrations on startup. Only the postgres
// dialect is migrated this way; sqlite test databases are built with
// AutoMigrate and skipped here.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if !strings.EqualFold(cfg.DBType, "postgres") {
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
