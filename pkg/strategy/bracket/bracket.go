// Package bracket places a take-profit and a stop-loss as two independent exchange orders.
// There is no exchange-side link between them: when one fills, the other keeps working
// until it is cancelled.
package bracket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/validator"
	"github.com/joripage/futures-bot/pkg/strategy"
	"go.uber.org/zap"
)

type Params struct {
	Symbol          string
	Side            string // side of the position being protected
	Quantity        string
	TakeProfitPrice string
	StopPrice       string
	StopLimitPrice  string // defaults to StopPrice
}

type Engine struct {
	oms    oms.IOMS
	logger logging.ILogger
	now    func() time.Time
}

func NewEngine(o oms.IOMS, logger logging.ILogger) *Engine {
	return &Engine{oms: o, logger: logger, now: time.Now}
}

func (p Params) validate() error {
	problems := validator.ValidateLimitOrder(p.Symbol, p.Side, p.Quantity, p.TakeProfitPrice)
	if !validator.ValidatePrice(p.StopPrice) {
		problems = append(problems, fmt.Sprintf("Invalid stop price: %s", p.StopPrice))
	}
	if p.StopLimitPrice != "" && !validator.ValidatePrice(p.StopLimitPrice) {
		problems = append(problems, fmt.Sprintf("Invalid stop limit price: %s", p.StopLimitPrice))
	}
	return validator.Check(problems)
}

// Place submits both legs on the side opposite to p.Side. Both legs are always attempted.
// If either fails, the returned group holds the leg that succeeded and the error is a
// *model.PartialFailure; the successful leg is left working.
func (e *Engine) Place(ctx context.Context, p Params) (*model.BracketGroup, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(p.Symbol)
	entry := model.OrderSide(strings.ToUpper(p.Side))
	qty := validator.Decimal(p.Quantity)
	stop := validator.Decimal(p.StopPrice)
	stopLimit := stop
	if p.StopLimitPrice != "" {
		stopLimit = validator.Decimal(p.StopLimitPrice)
	}

	group := &model.BracketGroup{
		ID:        strategy.BaseID(symbol, "oco", e.now()),
		Symbol:    symbol,
		EntrySide: entry,
		Quantity:  qty,
	}
	ctx = logging.WithRequestID(ctx, group.ID)

	if price, err := e.oms.TickerPrice(ctx, symbol); err != nil {
		e.logger.Warn(ctx, "ticker price unavailable", zap.String("symbol", symbol), zap.Error(err))
	} else {
		group.ReferencePrice = price
		e.logger.Info(ctx, "current market price", zap.String("symbol", symbol), zap.String("price", price.String()))
	}

	exit := entry.Opposite()
	legs := []struct {
		name string
		req  model.OrderRequest
		set  func(h *model.OrderHandle)
	}{
		{
			name: "take_profit",
			req: model.OrderRequest{
				Symbol:      symbol,
				Side:        exit,
				Type:        model.OrderTypeLimit,
				Quantity:    qty,
				Price:       validator.Decimal(p.TakeProfitPrice),
				TimeInForce: model.OrderTimeInForceGTC,
			},
			set: func(h *model.OrderHandle) { group.TakeProfit = h },
		},
		{
			name: "stop_loss",
			req: model.OrderRequest{
				Symbol:      symbol,
				Side:        exit,
				Type:        model.OrderTypeStop,
				Quantity:    qty,
				Price:       stopLimit,
				StopPrice:   stop,
				TimeInForce: model.OrderTimeInForceGTC,
			},
			set: func(h *model.OrderHandle) { group.StopLoss = h },
		},
	}

	var report strategy.BatchReport
	for _, leg := range legs {
		h, err := e.oms.Submit(ctx, group.ID, leg.req)
		if err != nil {
			report.Fail(leg.name, err)
			continue
		}
		leg.set(h)
		report.Succeeded++
	}

	if err := report.Err("bracket.place"); err != nil {
		e.logger.Warn(ctx, "bracket partially placed",
			zap.String("oco_id", group.ID), zap.Int("placed", report.Succeeded), zap.Error(err))
		return group, err
	}
	e.logger.Info(ctx, "bracket placed",
		zap.String("oco_id", group.ID),
		zap.Int64("take_profit_order_id", group.TakeProfit.OrderID),
		zap.Int64("stop_loss_order_id", group.StopLoss.OrderID),
	)
	return group, nil
}

// CancelReport lists the cancellations that went through.
type CancelReport struct {
	strategy.BatchReport
	Cancelled []*model.OrderReport `json:"cancelled"`
}

// Cancel cancels each order independently and keeps going past failures.
// The report's Err is a *model.PartialFailure when some cancellations failed.
func (e *Engine) Cancel(ctx context.Context, symbol string, orderIDs []int64) (*CancelReport, error) {
	if !validator.ValidateSymbol(symbol) {
		return nil, model.NewValidationError(fmt.Sprintf("Invalid symbol format: %s", symbol))
	}
	symbol = strings.ToUpper(symbol)

	report := &CancelReport{}
	for _, id := range orderIDs {
		r, err := e.oms.Cancel(ctx, "", symbol, id)
		if err != nil {
			report.Fail(fmt.Sprintf("order %d", id), err)
			continue
		}
		report.Cancelled = append(report.Cancelled, r)
		report.Succeeded++
	}
	e.logger.Info(ctx, "bracket orders cancelled",
		zap.String("symbol", symbol), zap.Int("cancelled", report.Succeeded), zap.Int("failed", report.FailedCount()))
	return report, nil
}
