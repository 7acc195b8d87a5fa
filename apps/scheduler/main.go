package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterbill/internal/billing"
	"github.com/smallbiznis/waterbill/internal/clock"
	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger"
	"github.com/smallbiznis/waterbill/internal/providers"
	"github.com/smallbiznis/waterbill/internal/scheduler"
	"github.com/smallbiznis/waterbill/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),

		// Domain services required by scheduler
		ledger.Module,
		billing.Module,
		providers.Module,
		scheduler.Module,

		// No server module!
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
