package oms

import (
	"context"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// OrderGateway is the exchange boundary. Implementations must not retry order placement.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.OrderReport, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error)
	GetOrderStatus(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error)
	GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetAccountInfo(ctx context.Context) (*model.AccountInfo, error)
	GetSymbolInfo(ctx context.Context, symbol string) (*model.SymbolInfo, error)
}
