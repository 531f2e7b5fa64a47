package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the closing side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

type OrderType string

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeLimit            OrderType = "LIMIT"
	OrderTypeStop             OrderType = "STOP"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
	OrderTypeTakeProfit       OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

type OrderTimeInForce string

const (
	OrderTimeInForceGTC OrderTimeInForce = "GTC"
	OrderTimeInForceIOC OrderTimeInForce = "IOC"
	OrderTimeInForceFOK OrderTimeInForce = "FOK"
	OrderTimeInForceGTX OrderTimeInForce = "GTX"
)

// OrderStatus mirrors the exchange order status strings.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// IsEnd reports whether no further exchange transitions are possible.
func (s OrderStatus) IsEnd() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// OrderRequest is what gets submitted to the exchange. Zero decimals are omitted on the wire.
type OrderRequest struct {
	Symbol        string           `json:"symbol"`
	Side          OrderSide        `json:"side"`
	Type          OrderType        `json:"type"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	StopPrice     decimal.Decimal  `json:"stop_price"`
	TimeInForce   OrderTimeInForce `json:"time_in_force,omitempty"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
}

// OrderReport is the exchange's view of an order, as returned by place, cancel and query calls.
type OrderReport struct {
	OrderID       int64            `json:"orderId"`
	ClientOrderID string           `json:"clientOrderId"`
	Symbol        string           `json:"symbol"`
	Status        OrderStatus      `json:"status"`
	Side          OrderSide        `json:"side"`
	Type          OrderType        `json:"type"`
	TimeInForce   OrderTimeInForce `json:"timeInForce"`
	Price         decimal.Decimal  `json:"price"`
	AvgPrice      decimal.Decimal  `json:"avgPrice"`
	StopPrice     decimal.Decimal  `json:"stopPrice"`
	OrigQty       decimal.Decimal  `json:"origQty"`
	ExecutedQty   decimal.Decimal  `json:"executedQty"`
	UpdateTime    int64            `json:"updateTime"`
}

// OrderHandle is the local record of a placed order. It is owned by the strategy that placed it.
type OrderHandle struct {
	OrderID       int64           `json:"order_id"`
	ClientOrderID string          `json:"client_order_id"`
	StrategyID    string          `json:"strategy_id,omitempty"`
	Request       OrderRequest    `json:"request"`
	Status        OrderStatus     `json:"status"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	ExecutedQty   decimal.Decimal `json:"executed_qty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewOrderHandle(strategyID string, req OrderRequest, report *OrderReport) *OrderHandle {
	h := &OrderHandle{
		OrderID:       report.OrderID,
		ClientOrderID: report.ClientOrderID,
		StrategyID:    strategyID,
		Request:       req,
		Status:        OrderStatusNew,
		UpdatedAt:     time.Now(),
	}
	if h.ClientOrderID == "" {
		h.ClientOrderID = req.ClientOrderID
	}
	h.Apply(report)
	return h
}

// Apply refreshes the last-known state from an exchange report.
func (h *OrderHandle) Apply(report *OrderReport) {
	if report == nil {
		return
	}
	if report.Status != "" {
		h.Status = report.Status
	}
	h.AvgPrice = report.AvgPrice
	h.ExecutedQty = report.ExecutedQty
	if report.UpdateTime > 0 {
		h.UpdatedAt = time.UnixMilli(report.UpdateTime)
	} else {
		h.UpdatedAt = time.Now()
	}
}

// ExecutionPrice is the average fill price, falling back to the requested limit price.
func (h *OrderHandle) ExecutionPrice() decimal.Decimal {
	if h.AvgPrice.IsPositive() {
		return h.AvgPrice
	}
	return h.Request.Price
}
