package main

import (
	"context"
	"flag"

	"tenantsync/cmd/task/wire"
	"tenantsync/pkg/config"
	"tenantsync/pkg/log"

	"go.uber.org/zap"
)

func main() {
	var envConf = flag.String("conf", "config/local.yml", "config path, eg: -conf ./config/local.yml")
	flag.Parse()
	conf := config.NewConfig(*envConf)

	logger := log.NewLog(conf)

	app, cleanup, err := wire.NewWire(conf, logger)
	defer cleanup()
	if err != nil {
		panic(err)
	}
	logger.Info("task start",
		zap.String("bidirectional_cron", conf.GetString("job.bidirectional_cron")),
		zap.String("retry_cron", conf.GetString("job.retry_cron")),
		zap.String("cleanup_cron", conf.GetString("job.cleanup_cron")))
	if err = app.Run(context.Background()); err != nil {
		panic(err)
	}
}
