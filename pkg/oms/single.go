package oms

import (
	"context"
	"fmt"
	"strings"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type MarketOrderParams struct {
	Symbol   string
	Side     string
	Quantity string
}

type LimitOrderParams struct {
	Symbol      string
	Side        string
	Quantity    string
	Price       string
	TimeInForce string // defaults to GTC
}

// Placement is a placed order plus the ticker price seen just before placing it.
// MarketPrice is informational and is not valid when the ticker could not be read.
type Placement struct {
	Handle      *model.OrderHandle  `json:"order"`
	MarketPrice decimal.NullDecimal `json:"market_price"`
}

// ReferencePrice reads the ticker for display. A failure is logged and yields an invalid value.
func (s *OMS) ReferencePrice(ctx context.Context, symbol string) decimal.NullDecimal {
	price, err := s.orderGateway.GetTickerPrice(ctx, symbol)
	if err != nil {
		s.logger.Warn(ctx, "ticker price unavailable", zap.String("symbol", symbol), zap.Error(err))
		return decimal.NullDecimal{}
	}
	s.logger.Info(ctx, "current market price", zap.String("symbol", symbol), zap.String("price", price.String()))
	return decimal.NullDecimal{Decimal: price, Valid: true}
}

func (s *OMS) PlaceMarketOrder(ctx context.Context, p MarketOrderParams) (*Placement, error) {
	if err := validator.Check(validator.ValidateBasicOrder(p.Symbol, p.Side, p.Quantity)); err != nil {
		return nil, err
	}
	req := model.OrderRequest{
		Symbol:   strings.ToUpper(p.Symbol),
		Side:     model.OrderSide(strings.ToUpper(p.Side)),
		Type:     model.OrderTypeMarket,
		Quantity: validator.Decimal(p.Quantity),
	}

	price := s.ReferencePrice(ctx, req.Symbol)
	h, err := s.Submit(ctx, "", req)
	if err != nil {
		return nil, err
	}
	return &Placement{Handle: h, MarketPrice: price}, nil
}

func (s *OMS) PlaceLimitOrder(ctx context.Context, p LimitOrderParams) (*Placement, error) {
	tif := p.TimeInForce
	if tif == "" {
		tif = string(model.OrderTimeInForceGTC)
	}
	problems := validator.ValidateLimitOrder(p.Symbol, p.Side, p.Quantity, p.Price)
	if !validator.ValidateTimeInForce(tif) {
		problems = append(problems, fmt.Sprintf("Invalid time in force: %s", tif))
	}
	if err := validator.Check(problems); err != nil {
		return nil, err
	}
	req := model.OrderRequest{
		Symbol:      strings.ToUpper(p.Symbol),
		Side:        model.OrderSide(strings.ToUpper(p.Side)),
		Type:        model.OrderTypeLimit,
		Quantity:    validator.Decimal(p.Quantity),
		Price:       validator.Decimal(p.Price),
		TimeInForce: model.OrderTimeInForce(strings.ToUpper(tif)),
	}

	price := s.ReferencePrice(ctx, req.Symbol)
	h, err := s.Submit(ctx, "", req)
	if err != nil {
		return nil, err
	}
	return &Placement{Handle: h, MarketPrice: price}, nil
}

// CancelOrder cancels one order by exchange id and updates its tracked handle, if any.
func (s *OMS) CancelOrder(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error) {
	if err := s.checkOrderRef(symbol, orderID); err != nil {
		return nil, err
	}
	report, err := s.Cancel(ctx, "", strings.ToUpper(symbol), orderID)
	if err != nil {
		return nil, err
	}
	if h, ok := s.registry.GetOrder(orderID); ok && h.StrategyID == "" {
		h.Apply(report)
	}
	return report, nil
}

func (s *OMS) OrderStatus(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error) {
	if err := s.checkOrderRef(symbol, orderID); err != nil {
		return nil, err
	}
	return s.Query(ctx, strings.ToUpper(symbol), orderID)
}

func (s *OMS) checkOrderRef(symbol string, orderID int64) error {
	var problems []string
	if !validator.ValidateSymbol(symbol) {
		problems = append(problems, fmt.Sprintf("Invalid symbol format: %s", symbol))
	}
	if orderID <= 0 {
		problems = append(problems, errOrderIDRequired.Error())
	}
	return validator.Check(problems)
}
