package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderEventKind string

const (
	OrderEventPlaced       OrderEventKind = "placed"
	OrderEventPlaceFailed  OrderEventKind = "place_failed"
	OrderEventCanceled     OrderEventKind = "canceled"
	OrderEventCancelFailed OrderEventKind = "cancel_failed"
	OrderEventFilled       OrderEventKind = "filled"
)

// OrderEvent is an audit record of one order action. It is written out, never read back.
type OrderEvent struct {
	EventID       string          `json:"event_id" gorm:"primaryKey"`
	StrategyID    string          `json:"strategy_id"`
	Kind          OrderEventKind  `json:"kind"`
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	Type          OrderType       `json:"type"`
	OrderID       int64           `json:"order_id"`
	ClientOrderID string          `json:"client_order_id"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:numeric"`
	Status        OrderStatus     `json:"status"`
	Error         string          `json:"error,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (OrderEvent) TableName() string { return "order_events" }

func NewOrderEvent(kind OrderEventKind, strategyID string, req OrderRequest, ts time.Time) *OrderEvent {
	return &OrderEvent{
		EventID:       uuid.NewString(),
		StrategyID:    strategyID,
		Kind:          kind,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		ClientOrderID: req.ClientOrderID,
		Price:         req.Price,
		Quantity:      req.Quantity,
		Timestamp:     ts,
	}
}

// NewHandleEvent records an action against an already placed order.
func NewHandleEvent(kind OrderEventKind, h *OrderHandle, ts time.Time) *OrderEvent {
	ev := NewOrderEvent(kind, h.StrategyID, h.Request, ts)
	ev.OrderID = h.OrderID
	ev.ClientOrderID = h.ClientOrderID
	ev.Status = h.Status
	if h.AvgPrice.IsPositive() {
		ev.Price = h.AvgPrice
	}
	return ev
}

// NewReportEvent records an exchange report for an order the caller may not hold a handle for.
func NewReportEvent(kind OrderEventKind, strategyID string, report *OrderReport, ts time.Time) *OrderEvent {
	price := report.AvgPrice
	if !price.IsPositive() {
		price = report.Price
	}
	return &OrderEvent{
		EventID:       uuid.NewString(),
		StrategyID:    strategyID,
		Kind:          kind,
		Symbol:        report.Symbol,
		Side:          report.Side,
		Type:          report.Type,
		OrderID:       report.OrderID,
		ClientOrderID: report.ClientOrderID,
		Price:         price,
		Quantity:      report.OrigQty,
		Status:        report.Status,
		Timestamp:     ts,
	}
}
