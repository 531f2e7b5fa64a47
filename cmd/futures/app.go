package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joripage/futures-bot/config"
	postgres_wrapper "github.com/joripage/futures-bot/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/futures-bot/pkg/infra/redis"
	"github.com/joripage/futures-bot/pkg/journal"
	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/registry"
	"github.com/joripage/futures-bot/pkg/oms/repo"
	"github.com/joripage/futures-bot/pkg/oms/restgateway"
	riskrule "github.com/joripage/futures-bot/pkg/oms/risk_rule"
	"github.com/joripage/futures-bot/pkg/strategy/bracket"
	"github.com/joripage/futures-bot/pkg/strategy/grid"
	"github.com/joripage/futures-bot/pkg/strategy/twap"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// app holds everything a subcommand needs.
type app struct {
	cfg     *config.AppConfig
	logger  *logging.Logger
	oms     *oms.OMS
	bracket *bracket.Engine
	twap    *twap.Engine
	grid    *grid.Engine
	memory  *journal.MemorySink
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	client := restgateway.NewClient(restgateway.Config{
		APIKey:     cfg.Exchange.APIKey,
		APISecret:  cfg.Exchange.APISecret,
		BaseURL:    cfg.Exchange.BaseURL(),
		Timeout:    time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
		RecvWindow: cfg.Exchange.RecvWindow,
	}, logger)

	sink, err := a.buildJournal(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	rules, err := buildRules(cfg.Risk, client)
	if err != nil {
		a.close()
		return nil, err
	}

	reg := registry.NewInMemoryRegistry()
	a.oms = oms.NewOMS(client, logger,
		oms.WithRegistry(reg),
		oms.WithJournal(sink),
		oms.WithRules(rules...),
	)
	a.bracket = bracket.NewEngine(a.oms, logger)
	a.twap = twap.NewEngine(a.oms, reg, logger)
	a.grid = grid.NewEngine(a.oms, reg, logger)

	logger.Info(ctx, "futures bot initialized",
		zap.String("service", cfg.ServiceName),
		zap.Bool("testnet", cfg.Exchange.Testnet),
		zap.String("base_url", cfg.Exchange.BaseURL()),
		zap.Strings("journal_sinks", cfg.Journal.Sinks),
	)
	return a, nil
}

func buildRules(cfg config.RiskConfig, client *restgateway.Client) ([]riskrule.RiskRule, error) {
	var rules []riskrule.RiskRule
	if cfg.MinOrderSize != "" || cfg.MaxOrderSize != "" {
		rule := &riskrule.QuantityLimitRule{}
		var err error
		if cfg.MinOrderSize != "" {
			if rule.Min, err = decimal.NewFromString(cfg.MinOrderSize); err != nil {
				return nil, fmt.Errorf("risk.min_order_size: %w", err)
			}
		}
		if cfg.MaxOrderSize != "" {
			if rule.Max, err = decimal.NewFromString(cfg.MaxOrderSize); err != nil {
				return nil, fmt.Errorf("risk.max_order_size: %w", err)
			}
		}
		rules = append(rules, rule)
	}
	if cfg.EnforceFilters {
		rules = append(rules, riskrule.NewTickSizeRule(client.GetSymbolInfo))
	}
	return rules, nil
}

// buildJournal connects every configured sink. Backends that need a connection are only
// dialled when enabled.
func (a *app) buildJournal(ctx context.Context) (journal.Sink, error) {
	jc := a.cfg.Journal
	var sinks []journal.Sink

	if jc.Enabled("memory") {
		a.memory = journal.NewMemorySink(jc.MemoryCapacity)
		sinks = append(sinks, a.memory)
	}

	if jc.Enabled("postgres") {
		if jc.Postgres == nil {
			return nil, errors.New("journal sink postgres enabled without journal.postgres config")
		}
		db, err := postgres_wrapper.InitPostgresWithBackoff(jc.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init journal db: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		sinks = append(sinks, journal.NewSQLSink(repo.NewRepo(db)))
	}

	if jc.Enabled("redis") {
		if jc.Redis == nil {
			return nil, errors.New("journal sink redis enabled without journal.redis config")
		}
		rdb, err := redis_wrapper.InitRedis(ctx, jc.Redis)
		if err != nil {
			return nil, fmt.Errorf("init journal redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		sinks = append(sinks, journal.NewRedisSink(rdb, jc.Redis.Stream, jc.Redis.StreamMaxLen))
	}

	if jc.Enabled("nats") {
		if jc.NATS == nil {
			return nil, errors.New("journal sink nats enabled without journal.nats config")
		}
		js, err := a.connectNATS(*jc.NATS)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, journal.NewNATSSink(js, jc.NATS.Subject))
	}

	if jc.Enabled("kafka") {
		if jc.Kafka == nil {
			return nil, errors.New("journal sink kafka enabled without journal.kafka config")
		}
		k := journal.NewKafkaSink(*jc.Kafka)
		a.closers = append(a.closers, k.Close)
		sinks = append(sinks, k)
	}

	if len(sinks) == 0 {
		return journal.Nop(), nil
	}
	sink := journal.Multi(sinks...)
	if jc.Async {
		sink = journal.NewShardedSink(sink, a.logger)
	}
	return sink, nil
}

func (a *app) connectNATS(cfg config.NATSConfig) (nats.JetStreamContext, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	a.closers = append(a.closers, func() error { return nc.Drain() })

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	stream, subject := cfg.Stream, cfg.Subject
	if stream == "" {
		stream = journal.DefaultNATSStream
	}
	if subject == "" {
		subject = journal.DefaultNATSSubject
	}
	if err := journal.EnsureStream(js, stream, subject); err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", stream, err)
	}
	return js, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.LogError(context.Background(), err, "app.close")
		}
	}
	_ = a.logger.Sync()
}
