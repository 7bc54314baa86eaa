package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/migration"
	"github.com/smallbiznis/passage/internal/observability"
	"github.com/smallbiznis/passage/internal/server"
	"github.com/smallbiznis/passage/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
