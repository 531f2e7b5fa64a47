package grid

import (
	"context"
	"fmt"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/metrics"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/strategy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DeployReport struct {
	strategy.BatchReport
	GridID         string           `json:"grid_id"`
	ReferencePrice decimal.Decimal  `json:"reference_price"`
	BuyOrders      int              `json:"buy_orders"`
	SellOrders     int              `json:"sell_orders"`
	SkippedLevels  int              `json:"skipped_levels"`
	Status         model.GridStatus `json:"status"`
}

type MonitorReport struct {
	strategy.BatchReport
	GridID       string `json:"grid_id"`
	Polled       int    `json:"polled_orders"`
	FilledOrders int    `json:"filled_orders"`
	Replacements int    `json:"replacement_orders"`
	OutOfRange   int    `json:"out_of_range"`
	Status       string `json:"status"`
}

type StopReport struct {
	strategy.BatchReport
	GridID          string           `json:"grid_id"`
	CancelledOrders int              `json:"cancelled_orders"`
	Status          model.GridStatus `json:"status"`
}

func gridFields(g *model.GridStrategy) []zap.Field {
	return []zap.Field{
		zap.String("grid_id", g.ID),
		zap.String("symbol", g.Symbol),
		zap.String("lower_price", g.LowerPrice.String()),
		zap.String("upper_price", g.UpperPrice.String()),
		zap.Int("grid_levels", g.LevelCount),
		zap.String("price_step", g.PriceStep.String()),
		zap.String("quantity_per_level", g.QuantityPerLevel.String()),
	}
}

func (e *Engine) limitOrder(g *model.GridStrategy, side model.OrderSide, price decimal.Decimal) model.OrderRequest {
	return model.OrderRequest{
		Symbol:      g.Symbol,
		Side:        side,
		Type:        model.OrderTypeLimit,
		Quantity:    g.QuantityPerLevel,
		Price:       price,
		TimeInForce: model.OrderTimeInForceGTC,
	}
}

// Deploy places a BUY at every level strictly below the current price and a SELL at every
// level strictly above it. A level equal to the price is skipped. Failed placements are
// logged and left out; the grid is deployed with whatever succeeded.
func (e *Engine) Deploy(ctx context.Context, id string) (*DeployReport, error) {
	g, err := e.registry.GetGrid(id)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithRequestID(ctx, g.ID)

	g.Lock()
	defer g.Unlock()

	if !g.CanTransit(model.GridStatusDeployed) {
		return nil, fmt.Errorf("deploy grid %s in status %s: %w", g.ID, g.Status, model.ErrInvalidTransition)
	}

	price, err := e.oms.TickerPrice(ctx, g.Symbol)
	if err != nil {
		e.logger.LogError(ctx, err, "grid.deploy", zap.String("grid_id", g.ID))
		return nil, err
	}

	report := &DeployReport{GridID: g.ID, ReferencePrice: price}
	for _, level := range g.Levels {
		var side model.OrderSide
		switch {
		case level.LessThan(price):
			side = model.OrderSideBuy
		case level.GreaterThan(price):
			side = model.OrderSideSell
		default:
			report.SkippedLevels++
			continue
		}

		h, err := e.oms.Submit(ctx, g.ID, e.limitOrder(g, side, level))
		if err != nil {
			report.Fail(fmt.Sprintf("%s @ %s", side, level), err)
			continue
		}
		report.Succeeded++
		if side == model.OrderSideBuy {
			g.BuyOrders = append(g.BuyOrders, h)
			report.BuyOrders++
		} else {
			g.SellOrders = append(g.SellOrders, h)
			report.SellOrders++
		}
	}

	g.Status = model.GridStatusDeployed
	report.Status = g.Status
	metrics.ActiveStrategies.WithLabelValues("grid").Inc()

	e.logger.Info(ctx, "grid deployed",
		zap.String("grid_id", g.ID),
		zap.String("reference_price", price.String()),
		zap.Int("buy_orders", report.BuyOrders),
		zap.Int("sell_orders", report.SellOrders),
		zap.Int("failed", report.FailedCount()),
	)
	return report, nil
}

// Monitor polls every open order of a deployed grid once. For each order that is newly
// filled it places the opposite order one step away (avgPrice + step after a BUY,
// avgPrice - step after a SELL), unless that price falls outside the grid range.
func (e *Engine) Monitor(ctx context.Context, id string) (*MonitorReport, error) {
	g, err := e.registry.GetGrid(id)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithRequestID(ctx, g.ID)

	g.Lock()
	defer g.Unlock()

	if g.Status != model.GridStatusDeployed {
		return nil, fmt.Errorf("monitor grid %s in status %s: %w", g.ID, g.Status, ErrNotDeployed)
	}

	report := &MonitorReport{GridID: g.ID, Status: "monitored"}
	tracked := make([]*model.OrderHandle, 0, len(g.BuyOrders)+len(g.SellOrders))
	tracked = append(tracked, g.BuyOrders...)
	tracked = append(tracked, g.SellOrders...)

	for _, h := range tracked {
		if h.Status.IsEnd() {
			continue
		}
		report.Polled++

		status, err := e.oms.Query(ctx, g.Symbol, h.OrderID)
		if err != nil {
			e.logger.LogError(ctx, err, "grid.monitor.status", zap.String("grid_id", g.ID), zap.Int64("order_id", h.OrderID))
			report.Fail(fmt.Sprintf("status %d", h.OrderID), err)
			continue
		}
		h.Apply(status)
		if h.Status != model.OrderStatusFilled {
			continue
		}

		report.FilledOrders++
		e.oms.RecordFill(ctx, h)

		exec := h.ExecutionPrice()
		side := h.Request.Side.Opposite()
		next := exec.Add(g.PriceStep).Round(pricePrecision)
		if side == model.OrderSideBuy {
			next = exec.Sub(g.PriceStep).Round(pricePrecision)
		}
		if next.LessThan(g.LowerPrice) || next.GreaterThan(g.UpperPrice) {
			report.OutOfRange++
			e.logger.Info(ctx, "grid counter order out of range",
				zap.String("grid_id", g.ID), zap.Int64("filled_order_id", h.OrderID), zap.String("price", next.String()))
			continue
		}

		nh, err := e.oms.Submit(ctx, g.ID, e.limitOrder(g, side, next))
		if err != nil {
			report.Fail(fmt.Sprintf("%s @ %s", side, next), err)
			continue
		}
		report.Succeeded++
		report.Replacements++
		metrics.GridRebalances.Inc()
		if side == model.OrderSideBuy {
			g.BuyOrders = append(g.BuyOrders, nh)
		} else {
			g.SellOrders = append(g.SellOrders, nh)
		}
		e.logger.Info(ctx, "grid counter order placed",
			zap.String("grid_id", g.ID),
			zap.Int64("filled_order_id", h.OrderID),
			zap.Int64("order_id", nh.OrderID),
			zap.String("side", string(side)),
			zap.String("price", next.String()),
		)
	}
	return report, nil
}

// Stop cancels every open order of the grid, continuing past failures, and marks it stopped.
func (e *Engine) Stop(ctx context.Context, id string) (*StopReport, error) {
	g, err := e.registry.GetGrid(id)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithRequestID(ctx, g.ID)

	g.Lock()
	defer g.Unlock()

	if !g.CanTransit(model.GridStatusStopped) {
		return nil, fmt.Errorf("stop grid %s in status %s: %w", g.ID, g.Status, model.ErrInvalidTransition)
	}
	wasDeployed := g.Status == model.GridStatusDeployed

	report := &StopReport{GridID: g.ID}
	for _, orders := range [][]*model.OrderHandle{g.BuyOrders, g.SellOrders} {
		for _, h := range orders {
			if h.Status.IsEnd() {
				continue
			}
			r, err := e.oms.Cancel(ctx, g.ID, g.Symbol, h.OrderID)
			if err != nil {
				report.Fail(fmt.Sprintf("cancel %d", h.OrderID), err)
				continue
			}
			h.Apply(r)
			report.Succeeded++
			report.CancelledOrders++
		}
	}

	g.Status = model.GridStatusStopped
	report.Status = g.Status
	if wasDeployed {
		metrics.ActiveStrategies.WithLabelValues("grid").Dec()
	}
	e.logger.Info(ctx, "grid stopped",
		zap.String("grid_id", g.ID), zap.Int("cancelled_orders", report.CancelledOrders), zap.Int("failed", report.FailedCount()))
	return report, nil
}

// MonitorAll runs Monitor over every deployed grid, logging per-grid failures.
func (e *Engine) MonitorAll(ctx context.Context) []*MonitorReport {
	var reports []*MonitorReport
	for _, g := range e.registry.ListGrids() {
		if g.Snapshot().Status != model.GridStatusDeployed {
			continue
		}
		r, err := e.Monitor(ctx, g.ID)
		if err != nil {
			e.logger.LogError(ctx, err, "grid.monitor", zap.String("grid_id", g.ID))
			continue
		}
		reports = append(reports, r)
	}
	return reports
}
