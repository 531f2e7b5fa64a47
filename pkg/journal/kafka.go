package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/joripage/futures-bot/pkg/oms/model"
	kafka "github.com/segmentio/kafka-go"
)

const DefaultKafkaTopic = "futures.order_events"

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// KafkaSink publishes events keyed by strategy id, so one strategy lands on one partition.
type KafkaSink struct {
	w     *kafka.Writer
	topic string
}

func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	if cfg.Topic == "" {
		cfg.Topic = DefaultKafkaTopic
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return &KafkaSink{w: w, topic: cfg.Topic}
}

func (s *KafkaSink) Record(ctx context.Context, ev *model.OrderEvent) error {
	if s == nil || s.w == nil {
		return errors.New("kafka sink not initialized")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(ev.StrategyID),
		Value: b,
		Time:  ev.Timestamp,
	})
}

func (s *KafkaSink) Close() error {
	if s == nil || s.w == nil {
		return nil
	}
	return s.w.Close()
}
