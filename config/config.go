package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	postgres_wrapper "github.com/joripage/futures-bot/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/futures-bot/pkg/infra/redis"
	"github.com/joripage/futures-bot/pkg/journal"
	"github.com/joripage/futures-bot/pkg/oms/restgateway"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrMissingCredentials = errors.New("BINANCE_API_KEY and BINANCE_API_SECRET must be set")

type ExchangeConfig struct {
	APIKey         string `yaml:"api_key" json:"-"`
	APISecret      string `yaml:"api_secret" json:"-"`
	Testnet        bool   `yaml:"testnet"`
	MainnetURL     string `yaml:"mainnet_url"`
	TestnetURL     string `yaml:"testnet_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RecvWindow     int64  `yaml:"recv_window"`
}

// BaseURL picks the endpoint for the configured environment.
func (e ExchangeConfig) BaseURL() string {
	if e.Testnet {
		return e.TestnetURL
	}
	return e.MainnetURL
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type RiskConfig struct {
	MinOrderSize   string `yaml:"min_order_size"`
	MaxOrderSize   string `yaml:"max_order_size"`
	EnforceFilters bool   `yaml:"enforce_filters"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
	Durable string `yaml:"durable"`
}

type JournalConfig struct {
	// Sinks lists the enabled backends: memory, postgres, redis, nats, kafka.
	Sinks          []string                         `yaml:"sinks"`
	Async          bool                             `yaml:"async"`
	MemoryCapacity int                              `yaml:"memory_capacity"`
	Postgres       *postgres_wrapper.PostgresConfig `yaml:"postgres"`
	Redis          *redis_wrapper.RedisConfig       `yaml:"redis"`
	NATS           *NATSConfig                      `yaml:"nats"`
	Kafka          *journal.KafkaConfig             `yaml:"kafka"`
}

// Enabled reports whether the named sink is configured.
func (j JournalConfig) Enabled(sink string) bool {
	for _, s := range j.Sinks {
		if strings.EqualFold(s, sink) {
			return true
		}
	}
	return false
}

type APIConfig struct {
	Addr                string   `yaml:"addr"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	GridMonitorInterval string   `yaml:"grid_monitor_interval"`
}

type AppConfig struct {
	ServiceName string         `yaml:"service_name"`
	Exchange    ExchangeConfig `yaml:"exchange"`
	Log         LogConfig      `yaml:"log"`
	Risk        RiskConfig     `yaml:"risk"`
	Journal     JournalConfig  `yaml:"journal"`
	API         APIConfig      `yaml:"api"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ServiceName: "futures-bot",
		Exchange: ExchangeConfig{
			Testnet:        true,
			MainnetURL:     restgateway.MainnetBaseURL,
			TestnetURL:     restgateway.TestnetBaseURL,
			TimeoutSeconds: 10,
		},
		Log: LogConfig{Level: "info", File: "bot.log"},
		Journal: JournalConfig{
			Sinks:          []string{"memory"},
			MemoryCapacity: journal.DefaultMemoryCapacity,
		},
		API: APIConfig{
			Addr:                ":8080",
			AllowedOrigins:      []string{"http://localhost:3000"},
			GridMonitorInterval: "30s",
		},
	}
}

// Load builds the config from defaults, an optional .env file, an optional yaml file and the
// environment, in that order of precedence (later wins). filePath falls back to CONFIG_FILE.
func Load(filePath string) (*AppConfig, error) {
	return LoadWithEnvFile(filePath, ".env")
}

func LoadWithEnvFile(filePath, envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	cfg := defaults()
	if filePath != "" {
		configBytes, err := os.ReadFile(filePath)
		if err != nil {
			sugar.Error("Failed to load config file")
			return nil, err
		}
		configBytes = []byte(os.ExpandEnv(string(configBytes)))

		if err := yaml.Unmarshal(configBytes, cfg); err != nil {
			sugar.Error("Failed to parse config file")
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	zap.S().Debugf("config: service=%s testnet=%v journal=%v", cfg.ServiceName, cfg.Exchange.Testnet, cfg.Journal.Sinks)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("BINANCE_TESTNET"); v != "" {
		testnet, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return errors.New("BINANCE_TESTNET must be true or false")
		}
		cfg.Exchange.Testnet = testnet
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.Log.File = v
	}
	return nil
}

// Validate fails when the exchange credentials are missing.
func (c *AppConfig) Validate() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return ErrMissingCredentials
	}
	return nil
}
