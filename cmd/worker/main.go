package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joripage/futures-bot/config"
	postgres_wrapper "github.com/joripage/futures-bot/pkg/infra/postgres"
	"github.com/joripage/futures-bot/pkg/journal"
	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms/repo"
	"github.com/joripage/futures-bot/pkg/oms/worker"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level))
	defer logger.Sync() // nolint
	zap.ReplaceGlobals(logger.Zap())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	natsCfg := cfg.Journal.NATS
	pgCfg := cfg.Journal.Postgres
	if natsCfg == nil || pgCfg == nil {
		logger.Fatal(ctx, "worker needs journal.nats and journal.postgres config")
	}

	url := natsCfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		logger.Fatal(ctx, "connect nats fail", zap.Error(err))
	}
	defer nc.Drain() // nolint

	js, err := nc.JetStream()
	if err != nil {
		logger.Fatal(ctx, "jetstream fail", zap.Error(err))
	}

	stream, subject, durable := natsCfg.Stream, natsCfg.Subject, natsCfg.Durable
	if stream == "" {
		stream = journal.DefaultNATSStream
	}
	if subject == "" {
		subject = journal.DefaultNATSSubject
	}
	if durable == "" {
		durable = "order_worker"
	}
	if err := journal.EnsureStream(js, stream, subject); err != nil {
		logger.Fatal(ctx, "ensure stream fail", zap.String("stream", stream), zap.Error(err))
	}

	// init db
	db, err := postgres_wrapper.InitPostgresWithBackoff(pgCfg)
	if err != nil {
		logger.Fatal(ctx, "init db fail", zap.Error(err))
	}

	w := worker.NewWorker(repo.NewRepo(db), logger)
	logger.Info(ctx, "order event worker started",
		zap.String("stream", stream), zap.String("subject", subject), zap.String("durable", durable))
	if err := w.StartConsumer(ctx, js, subject, durable); err != nil {
		logger.Fatal(ctx, "consumer stopped", zap.Error(err))
	}
	logger.Info(ctx, "order event worker exited")
}
