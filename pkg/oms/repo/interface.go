package repo

import (
	"context"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

type IOrderEvent interface {
	Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error)
	BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error)
	ListByStrategy(ctx context.Context, strategyID string, limit int) ([]*model.OrderEvent, error)
}
