package main

import (
	"flag"

	"github.com/joripage/futures-bot/config"
	"github.com/joripage/futures-bot/pkg/infra"
	"go.uber.org/zap"
)

func main() {
	var configFile string
	var source string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", "file://migration/sql", "Migration source")
	flag.Parse()

	logger, _ := zap.NewProduction()
	zap.ReplaceGlobals(logger)
	defer logger.Sync() // nolint

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if cfg.Journal.Postgres == nil || cfg.Journal.Postgres.MigrationConnURL == "" {
		zap.S().Fatal("journal.postgres.migration_conn_url is not set")
	}

	mgTool := infra.GetMigrateTool()
	if err := mgTool.Migrate(source, cfg.Journal.Postgres.MigrationConnURL); err != nil {
		zap.S().Fatalw("migrate fail", "err", err)
	}
	zap.S().Infow("migrate done", "source", source)
}
