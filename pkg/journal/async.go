package journal

import (
	"context"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/go_util/pkg/shardqueue"
	"go.uber.org/zap"
)

const (
	numShards = 8
	queueSize = 1024
)

// ShardedSink hands events to a background queue sharded by strategy id, so a slow backend
// never delays order flow while events of one strategy keep their order.
// Events still queued when the process exits are lost.
type ShardedSink struct {
	next       Sink
	logger     logging.ILogger
	shardQueue *shardqueue.Shardqueue
}

func NewShardedSink(next Sink, logger logging.ILogger) *ShardedSink {
	s := &ShardedSink{
		next:       next,
		logger:     logger,
		shardQueue: shardqueue.NewShardQueue(numShards, queueSize),
	}
	s.shardQueue.Start(func(msg interface{}) error {
		ev, ok := msg.(*model.OrderEvent)
		if !ok {
			return nil
		}
		if err := s.next.Record(context.Background(), ev); err != nil {
			s.logger.LogError(context.Background(), err, "journal.record",
				zap.String("event_id", ev.EventID), zap.String("strategy_id", ev.StrategyID))
		}
		return nil
	})
	return s
}

func (s *ShardedSink) Record(_ context.Context, ev *model.OrderEvent) error {
	key := ev.StrategyID
	if key == "" {
		key = ev.Symbol
	}
	s.shardQueue.Shard(key, ev)
	return nil
}
