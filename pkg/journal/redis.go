package journal

import (
	"context"
	"encoding/json"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisStream = "futures:order_events"

// RedisSink appends events to a capped Redis stream.
type RedisSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisSink(rdb *redis.Client, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = DefaultRedisStream
	}
	return &RedisSink{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) Record(ctx context.Context, ev *model.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]interface{}{
			"strategy_id": ev.StrategyID,
			"event":       data,
		},
	}).Err()
}
