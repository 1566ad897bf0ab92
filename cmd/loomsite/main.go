package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/loomsite/loomsite/internal/clock"
	"github.com/loomsite/loomsite/internal/config"
	"github.com/loomsite/loomsite/internal/migration"
	"github.com/loomsite/loomsite/internal/observability"
	"github.com/loomsite/loomsite/internal/scheduler"
	"github.com/loomsite/loomsite/internal/server"
	"github.com/loomsite/loomsite/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
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
