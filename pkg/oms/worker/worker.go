package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/repo"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const fetchBatch = 10

// Worker drains journal events from JetStream into the order_events table.
type Worker struct {
	orderEvent repo.IOrderEvent
	logger     logging.ILogger
}

func NewWorker(repo repo.IRepo, logger logging.ILogger) *Worker {
	return &Worker{
		orderEvent: repo.OrderEvent(),
		logger:     logger,
	}
}

// StartConsumer blocks until ctx is done.
func (w *Worker) StartConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	cons, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}
	defer cons.Unsubscribe() // nolint

	for {
		if ctx.Err() != nil {
			return nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		msgs, err := cons.Fetch(fetchBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.LogError(ctx, err, "worker.fetch")
			continue
		}

		w.handleBatch(ctx, msgs)
	}
}

func (w *Worker) handleBatch(ctx context.Context, msgs []*nats.Msg) {
	events := make([]*model.OrderEvent, 0, len(msgs))
	acks := make([]*nats.Msg, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := decodeEvent(msg.Data)
		if err != nil {
			w.logger.LogError(ctx, err, "worker.decode", zap.String("subject", msg.Subject))
			_ = msg.Ack()
			continue
		}
		events = append(events, ev)
		acks = append(acks, msg)
	}

	if _, err := w.orderEvent.BulkCreate(ctx, events); err != nil {
		// unacked messages are redelivered after AckWait
		w.logger.LogError(ctx, err, "worker.persist", zap.Int("events", len(events)))
		return
	}
	for _, msg := range acks {
		_ = msg.Ack()
	}
	w.logger.Info(ctx, "journal events persisted", zap.Int("events", len(events)))
}

func decodeEvent(data []byte) (*model.OrderEvent, error) {
	var ev model.OrderEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.EventID == "" {
		return nil, errors.New("event without event_id")
	}
	return &ev, nil
}
