package oms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/futures-bot/pkg/journal"
	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/metrics"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/registry"
	riskrule "github.com/joripage/futures-bot/pkg/oms/risk_rule"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OMS sits between the strategies and the gateway. Every order goes through Submit, which
// applies the pre-trade rules, tags a client order id and journals the outcome.
type OMS struct {
	orderGateway OrderGateway
	registry     registry.Registry
	journal      journal.Sink
	logger       logging.ILogger
	rules        []riskrule.RiskRule
	now          func() time.Time
}

type Option func(*OMS)

func WithRules(rules ...riskrule.RiskRule) Option {
	return func(s *OMS) { s.rules = append(s.rules, rules...) }
}

func WithJournal(sink journal.Sink) Option {
	return func(s *OMS) { s.journal = sink }
}

func WithRegistry(r registry.Registry) Option {
	return func(s *OMS) { s.registry = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *OMS) { s.now = now }
}

func NewOMS(orderGateway OrderGateway, logger logging.ILogger, opts ...Option) *OMS {
	s := &OMS{
		orderGateway: orderGateway,
		registry:     registry.NewInMemoryRegistry(),
		journal:      journal.Nop(),
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OMS) Registry() registry.Registry { return s.registry }

func (s *OMS) record(ctx context.Context, ev *model.OrderEvent) {
	if err := s.journal.Record(ctx, ev); err != nil {
		s.logger.Warn(ctx, "journal record failed", zap.String("event_id", ev.EventID), zap.Error(err))
	}
}

func (s *OMS) checkRules(ctx context.Context, req *model.OrderRequest) error {
	for _, rule := range s.rules {
		if err := rule.Check(ctx, req); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				return err
			}
			return fmt.Errorf("%w: %w", errRuleFailed, err)
		}
	}
	return nil
}

func orderFields(strategyID string, req model.OrderRequest) []zap.Field {
	fields := []zap.Field{
		zap.String("strategy_id", strategyID),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("type", string(req.Type)),
		zap.String("quantity", req.Quantity.String()),
		zap.String("client_order_id", req.ClientOrderID),
	}
	if !req.Price.IsZero() {
		fields = append(fields, zap.String("price", req.Price.String()))
	}
	if !req.StopPrice.IsZero() {
		fields = append(fields, zap.String("stop_price", req.StopPrice.String()))
	}
	return fields
}

// Submit places exactly one order. A failure is returned as is; nothing is retried.
func (s *OMS) Submit(ctx context.Context, strategyID string, req model.OrderRequest) (*model.OrderHandle, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	if err := s.checkRules(ctx, &req); err != nil {
		s.logger.Warn(ctx, "order rejected by pre-trade rules", append(orderFields(strategyID, req), zap.Error(err))...)
		return nil, err
	}

	s.logger.Info(ctx, "order_submitted", orderFields(strategyID, req)...)
	report, err := s.orderGateway.PlaceOrder(ctx, req)
	if err != nil {
		s.logger.LogError(ctx, err, "order.place", orderFields(strategyID, req)...)
		metrics.OrderFailures.WithLabelValues(metrics.StrategyKind(strategyID), "place").Inc()
		ev := model.NewOrderEvent(model.OrderEventPlaceFailed, strategyID, req, s.now())
		ev.Error = err.Error()
		s.record(ctx, ev)
		return nil, err
	}

	h := model.NewOrderHandle(strategyID, req, report)
	s.registry.TrackOrder(h)
	metrics.OrdersPlaced.WithLabelValues(metrics.StrategyKind(strategyID), string(req.Side), string(req.Type)).Inc()
	s.logger.Info(ctx, "order_executed",
		zap.String("strategy_id", strategyID),
		zap.Int64("order_id", h.OrderID),
		zap.String("client_order_id", h.ClientOrderID),
		zap.String("status", string(h.Status)),
		zap.String("executed_qty", h.ExecutedQty.String()),
		zap.String("avg_price", h.AvgPrice.String()),
	)
	s.record(ctx, model.NewHandleEvent(model.OrderEventPlaced, h, s.now()))
	return h, nil
}

func (s *OMS) Cancel(ctx context.Context, strategyID, symbol string, orderID int64) (*model.OrderReport, error) {
	report, err := s.orderGateway.CancelOrder(ctx, symbol, orderID)
	if err != nil {
		s.logger.LogError(ctx, err, "order.cancel",
			zap.String("strategy_id", strategyID), zap.String("symbol", symbol), zap.Int64("order_id", orderID))
		metrics.OrderFailures.WithLabelValues(metrics.StrategyKind(strategyID), "cancel").Inc()
		ev := &model.OrderEvent{
			EventID:    uuid.NewString(),
			StrategyID: strategyID,
			Kind:       model.OrderEventCancelFailed,
			Symbol:     symbol,
			OrderID:    orderID,
			Error:      err.Error(),
			Timestamp:  s.now(),
		}
		s.record(ctx, ev)
		return nil, err
	}

	metrics.OrdersCanceled.WithLabelValues(metrics.StrategyKind(strategyID)).Inc()
	s.logger.Info(ctx, "order_canceled",
		zap.String("strategy_id", strategyID), zap.String("symbol", symbol), zap.Int64("order_id", orderID))
	if report.Symbol == "" {
		report.Symbol = symbol
	}
	s.record(ctx, model.NewReportEvent(model.OrderEventCanceled, strategyID, report, s.now()))
	return report, nil
}

func (s *OMS) Query(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error) {
	report, err := s.orderGateway.GetOrderStatus(ctx, symbol, orderID)
	if err != nil {
		metrics.OrderFailures.WithLabelValues("query", "status").Inc()
		return nil, err
	}
	return report, nil
}

func (s *OMS) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.orderGateway.GetTickerPrice(ctx, symbol)
}

// RecordFill journals a fill observed by a strategy poll.
func (s *OMS) RecordFill(ctx context.Context, h *model.OrderHandle) {
	s.record(ctx, model.NewHandleEvent(model.OrderEventFilled, h, s.now()))
}

func (s *OMS) AccountInfo(ctx context.Context) (*model.AccountInfo, error) {
	return s.orderGateway.GetAccountInfo(ctx)
}

func (s *OMS) SymbolInfo(ctx context.Context, symbol string) (*model.SymbolInfo, error) {
	return s.orderGateway.GetSymbolInfo(ctx, symbol)
}
