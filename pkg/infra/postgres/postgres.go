package postgres_wrapper

import (
	"log"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/lib/pq" // nolint
	"go.uber.org/zap"
	pg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

type PostgresConfig struct {
	DataSource                 string          `yaml:"data_source"`
	MaxOpenConns               int             `yaml:"max_open_conns"`
	MaxIdleConns               int             `yaml:"max_idle_conns"`
	ConnMaxLifeTimeMiliseconds int64           `yaml:"conn_max_life_time_ms"`
	MigrationConnURL           string          `yaml:"migration_conn_url"`
	ReplicaSources             []string        `yaml:"replica_sources"`
	LogLevel                   logger.LogLevel `yaml:"log_level"`
	Location                   string          `yaml:"location"`
	ConnectTimeoutSeconds      int             `yaml:"connect_timeout_seconds"`
}

// InitPostgres opens the journal database, registering read replicas when configured.
func InitPostgres(cfg *PostgresConfig) (*gorm.DB, error) {
	logLevel := cfg.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	loc := time.UTC
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, err
		}
		loc = l
	}

	db, err := gorm.Open(pg.Open(cfg.DataSource), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().In(loc) },
	})
	if err != nil {
		zap.S().Debugf("open postgres fail: %+v", err)
		return nil, err
	}

	if len(cfg.ReplicaSources) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.ReplicaSources))
		for _, s := range cfg.ReplicaSources {
			replicas = append(replicas, pg.Open(s))
		}
		zap.S().Debugf("register %d postgres replicas", len(replicas))
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeTimeMiliseconds) * time.Millisecond)

	return db, nil
}

// InitPostgresWithBackoff keeps dialing with exponential backoff until ConnectTimeoutSeconds elapse.
func InitPostgresWithBackoff(cfg *PostgresConfig) (*gorm.DB, error) {
	var db *gorm.DB
	boff := backoff.NewExponentialBackOff()
	if cfg.ConnectTimeoutSeconds > 0 {
		boff.MaxElapsedTime = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	}
	err := backoff.Retry(func() error {
		var err error
		db, err = InitPostgres(cfg)
		if err != nil {
			zap.S().Warnw("connect postgres failed", "error", err)
		}
		return err
	}, boff)
	if err != nil {
		return nil, err
	}
	return db, nil
}
