package journal

import (
	"context"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/repo"
)

// SQLSink inserts events straight into the order_events table.
type SQLSink struct {
	orderEvent repo.IOrderEvent
}

func NewSQLSink(r repo.IRepo) *SQLSink {
	return &SQLSink{orderEvent: r.OrderEvent()}
}

func (s *SQLSink) Record(ctx context.Context, ev *model.OrderEvent) error {
	_, err := s.orderEvent.Create(ctx, ev)
	return err
}
