package oms

import (
	"context"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// IOMS is what strategies use to reach the exchange.
type IOMS interface {
	Submit(ctx context.Context, strategyID string, req model.OrderRequest) (*model.OrderHandle, error)
	Cancel(ctx context.Context, strategyID, symbol string, orderID int64) (*model.OrderReport, error)
	Query(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error)
	TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	RecordFill(ctx context.Context, h *model.OrderHandle)
}
