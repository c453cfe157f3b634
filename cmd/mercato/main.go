package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mercato/internal/clock"
	"github.com/smallbiznis/mercato/internal/config"
	"github.com/smallbiznis/mercato/internal/migration"
	"github.com/smallbiznis/mercato/internal/observability"
	"github.com/smallbiznis/mercato/internal/server"
	"github.com/smallbiznis/mercato/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema, then HTTP surface
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
