// Package grid maintains a ladder of buy orders below the market and sell orders above it,
// replacing each fill with an order on the other side one step away.
package grid

import (
	"context"
	"fmt"
	"strings"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/registry"
	"github.com/joripage/futures-bot/pkg/oms/validator"
	"github.com/joripage/futures-bot/pkg/strategy"
	"github.com/joripage/futures-bot/pkg/util"
	"github.com/shopspring/decimal"
)

const (
	pricePrecision    = 8
	quantityPrecision = 8
)

var ErrNotDeployed = fmt.Errorf("grid is not deployed: %w", model.ErrInvalidTransition)

type Params struct {
	Symbol     string
	LowerPrice string
	UpperPrice string
	Levels     int
	Investment string
}

type Engine struct {
	oms      oms.IOMS
	registry registry.Registry
	logger   logging.ILogger
	clock    util.Clock
}

type Option func(*Engine)

func WithClock(c util.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func NewEngine(o oms.IOMS, reg registry.Registry, logger logging.ILogger, opts ...Option) *Engine {
	e := &Engine{oms: o, registry: reg, logger: logger, clock: util.RealClock{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (p Params) validate() error {
	var problems []string
	if !validator.ValidateSymbol(p.Symbol) {
		problems = append(problems, fmt.Sprintf("Invalid symbol format: %s", p.Symbol))
	}
	lowerOK, upperOK := validator.ValidatePrice(p.LowerPrice), validator.ValidatePrice(p.UpperPrice)
	if !lowerOK {
		problems = append(problems, fmt.Sprintf("Invalid lower price: %s. Must be positive number", p.LowerPrice))
	}
	if !upperOK {
		problems = append(problems, fmt.Sprintf("Invalid upper price: %s. Must be positive number", p.UpperPrice))
	}
	if lowerOK && upperOK && !validator.Decimal(p.UpperPrice).GreaterThan(validator.Decimal(p.LowerPrice)) {
		problems = append(problems, "Upper price must be greater than lower price")
	}
	if p.Levels < 2 {
		problems = append(problems, fmt.Sprintf("Invalid grid levels: %d. Must be at least 2", p.Levels))
	}
	if !validator.ValidateQuantity(p.Investment) {
		problems = append(problems, fmt.Sprintf("Invalid investment: %s. Must be positive number", p.Investment))
	}
	return validator.Check(problems)
}

// Levels returns the step and the n evenly spaced prices from lower to upper, both inclusive.
func Levels(lower, upper decimal.Decimal, n int) (decimal.Decimal, []decimal.Decimal) {
	step := upper.Sub(lower).Div(decimal.NewFromInt(int64(n - 1)))
	levels := make([]decimal.Decimal, n)
	for i := range levels {
		levels[i] = lower.Add(step.Mul(decimal.NewFromInt(int64(i)))).Round(pricePrecision)
	}
	return step, levels
}

// QuantityPerLevel spreads the investment evenly over n levels at the mid price.
func QuantityPerLevel(investment, lower, upper decimal.Decimal, n int) decimal.Decimal {
	mid := lower.Add(upper).Div(decimal.NewFromInt(2))
	return investment.Div(mid.Mul(decimal.NewFromInt(int64(n)))).Truncate(quantityPrecision)
}

// Create computes and registers a grid with status created. Nothing is sent to the exchange.
func (e *Engine) Create(ctx context.Context, p Params) (*model.GridStrategy, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	lower, upper := validator.Decimal(p.LowerPrice), validator.Decimal(p.UpperPrice)
	investment := validator.Decimal(p.Investment)
	qty := QuantityPerLevel(investment, lower, upper, p.Levels)
	if !qty.IsPositive() {
		return nil, model.NewValidationError(fmt.Sprintf("Investment %s is too small for %d levels", investment, p.Levels))
	}
	step, levels := Levels(lower, upper, p.Levels)
	symbol := strings.ToUpper(p.Symbol)
	now := e.clock.Now()

	var g *model.GridStrategy
	_, err := strategy.Register(strategy.BaseID(symbol, "grid", now), func(id string) error {
		g = &model.GridStrategy{
			ID:               id,
			Symbol:           symbol,
			LowerPrice:       lower,
			UpperPrice:       upper,
			LevelCount:       p.Levels,
			PriceStep:        step,
			QuantityPerLevel: qty,
			TotalInvestment:  investment,
			Levels:           levels,
			Status:           model.GridStatusCreated,
			CreatedAt:        now,
		}
		return e.registry.AddGrid(g)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info(logging.WithRequestID(ctx, g.ID), "grid created",
		gridFields(g)...,
	)
	return g, nil
}

// Get returns a copy of a grid's current state.
func (e *Engine) Get(id string) (model.GridSnapshot, error) {
	g, err := e.registry.GetGrid(id)
	if err != nil {
		return model.GridSnapshot{}, err
	}
	return g.Snapshot(), nil
}

func (e *Engine) List() []model.GridSnapshot {
	grids := e.registry.ListGrids()
	out := make([]model.GridSnapshot, 0, len(grids))
	for _, g := range grids {
		out = append(out, g.Snapshot())
	}
	return out
}
