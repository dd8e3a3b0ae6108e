package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/config"
	"github.com/courierlog/payroll/internal/scheduler"
	"github.com/courierlog/payroll/internal/server"
	"github.com/courierlog/payroll/pkg/db"
	"github.com/courierlog/payroll/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
