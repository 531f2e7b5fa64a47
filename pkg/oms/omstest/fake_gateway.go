// Package omstest provides an in-memory exchange for tests.
package omstest

import (
	"context"
	"errors"
	"sync"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

var ErrInjected = errors.New("injected gateway failure")

// FakeGateway accepts every order unless told otherwise and remembers what it saw.
type FakeGateway struct {
	mu sync.Mutex

	Price     decimal.Decimal
	TickerErr error
	// PlaceErr decides per request whether placement fails.
	PlaceErr func(req model.OrderRequest) error
	// OnPlace runs after a successful placement, outside the lock.
	OnPlace   func(req model.OrderRequest)
	CancelErr map[int64]error
	StatusErr map[int64]error

	nextID    int64
	placed    []model.OrderRequest
	cancelled []int64
	queried   []int64
	orders    map[int64]*model.OrderReport
}

func NewFakeGateway(price string) *FakeGateway {
	return &FakeGateway{
		Price:     decimal.RequireFromString(price),
		CancelErr: make(map[int64]error),
		StatusErr: make(map[int64]error),
		orders:    make(map[int64]*model.OrderReport),
	}
}

func (f *FakeGateway) PlaceOrder(_ context.Context, req model.OrderRequest) (*model.OrderReport, error) {
	f.mu.Lock()
	if f.PlaceErr != nil {
		if err := f.PlaceErr(req); err != nil {
			f.mu.Unlock()
			return nil, err
		}
	}
	f.nextID++
	report := &model.OrderReport{
		OrderID:       f.nextID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Status:        model.OrderStatusNew,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Price:         req.Price,
		StopPrice:     req.StopPrice,
		OrigQty:       req.Quantity,
	}
	if req.Type == model.OrderTypeMarket {
		report.Status = model.OrderStatusFilled
		report.AvgPrice = f.Price
		report.ExecutedQty = req.Quantity
	}
	f.placed = append(f.placed, req)
	f.orders[report.OrderID] = report
	onPlace := f.OnPlace
	out := *report
	f.mu.Unlock()

	if onPlace != nil {
		onPlace(req)
	}
	return &out, nil
}

func (f *FakeGateway) CancelOrder(_ context.Context, symbol string, orderID int64) (*model.OrderReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.CancelErr[orderID]; err != nil {
		return nil, err
	}
	report, ok := f.orders[orderID]
	if !ok {
		return nil, &model.APIError{Method: "DELETE", Endpoint: "/fapi/v1/order", StatusCode: 400, Code: -2011, Message: "Unknown order sent."}
	}
	report.Status = model.OrderStatusCanceled
	f.cancelled = append(f.cancelled, orderID)
	out := *report
	return &out, nil
}

func (f *FakeGateway) GetOrderStatus(_ context.Context, symbol string, orderID int64) (*model.OrderReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queried = append(f.queried, orderID)
	if err := f.StatusErr[orderID]; err != nil {
		return nil, err
	}
	report, ok := f.orders[orderID]
	if !ok {
		return nil, &model.APIError{Method: "GET", Endpoint: "/fapi/v1/order", StatusCode: 400, Code: -2013, Message: "Order does not exist."}
	}
	out := *report
	return &out, nil
}

func (f *FakeGateway) GetTickerPrice(context.Context, string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TickerErr != nil {
		return decimal.Zero, f.TickerErr
	}
	return f.Price, nil
}

func (f *FakeGateway) GetAccountInfo(context.Context) (*model.AccountInfo, error) {
	return &model.AccountInfo{TotalWalletBalance: decimal.NewFromInt(1000), AvailableBalance: decimal.NewFromInt(1000), CanTrade: true}, nil
}

func (f *FakeGateway) GetSymbolInfo(_ context.Context, symbol string) (*model.SymbolInfo, error) {
	return &model.SymbolInfo{Symbol: symbol, Status: "TRADING"}, nil
}

// Fill marks an order filled at avgPrice.
func (f *FakeGateway) Fill(orderID int64, avgPrice string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.orders[orderID]; ok {
		r.Status = model.OrderStatusFilled
		r.AvgPrice = decimal.RequireFromString(avgPrice)
		r.ExecutedQty = r.OrigQty
	}
}

func (f *FakeGateway) Placed() []model.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.OrderRequest(nil), f.placed...)
}

func (f *FakeGateway) Cancelled() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cancelled...)
}

func (f *FakeGateway) Queried() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.queried...)
}

// SetPlaceErr swaps the placement failure hook safely while a run is in flight.
func (f *FakeGateway) SetPlaceErr(fn func(req model.OrderRequest) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PlaceErr = fn
}
