package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/platefulhq/plateful/internal/migration"
	"github.com/platefulhq/plateful/internal/observability"
	"github.com/platefulhq/plateful/internal/server"
	"github.com/platefulhq/plateful/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
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
