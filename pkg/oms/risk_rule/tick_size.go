package riskrule

import (
	"context"
	"fmt"
	"sync"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// SymbolInfoFunc looks up exchange trading rules for a symbol.
type SymbolInfoFunc func(ctx context.Context, symbol string) (*model.SymbolInfo, error)

// TickSizeRule checks prices against PRICE_FILTER and quantities against LOT_SIZE.
// Symbol rules are fetched once per symbol and cached for the process lifetime.
type TickSizeRule struct {
	lookup SymbolInfoFunc
	cache  sync.Map // symbol -> *model.SymbolInfo
}

func NewTickSizeRule(lookup SymbolInfoFunc) *TickSizeRule {
	return &TickSizeRule{lookup: lookup}
}

func (r *TickSizeRule) symbolInfo(ctx context.Context, symbol string) (*model.SymbolInfo, error) {
	if v, ok := r.cache.Load(symbol); ok {
		return v.(*model.SymbolInfo), nil
	}
	info, err := r.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.cache.Store(symbol, info)
	return info, nil
}

func (r *TickSizeRule) Check(ctx context.Context, req *model.OrderRequest) error {
	info, err := r.symbolInfo(ctx, req.Symbol)
	if err != nil {
		return err
	}

	var problems []string
	if f, ok := info.Filter(model.FilterPrice); ok {
		for _, p := range []struct {
			name  string
			value decimal.Decimal
		}{{"price", req.Price}, {"stop price", req.StopPrice}} {
			if p.value.IsZero() {
				continue
			}
			if !onStep(p.value, f.TickSize) {
				problems = append(problems, fmt.Sprintf("Invalid %s: %s. Must be a multiple of tick size %s", p.name, p.value, f.TickSize))
			}
			if f.MinPrice.IsPositive() && p.value.LessThan(f.MinPrice) {
				problems = append(problems, fmt.Sprintf("Invalid %s: %s. Below exchange minimum %s", p.name, p.value, f.MinPrice))
			}
			if f.MaxPrice.IsPositive() && p.value.GreaterThan(f.MaxPrice) {
				problems = append(problems, fmt.Sprintf("Invalid %s: %s. Above exchange maximum %s", p.name, p.value, f.MaxPrice))
			}
		}
	}
	if f, ok := info.Filter(model.FilterLotSize); ok {
		if !onStep(req.Quantity, f.StepSize) {
			problems = append(problems, fmt.Sprintf("Invalid quantity: %s. Must be a multiple of step size %s", req.Quantity, f.StepSize))
		}
		if f.MinQty.IsPositive() && req.Quantity.LessThan(f.MinQty) {
			problems = append(problems, fmt.Sprintf("Invalid quantity: %s. Below exchange minimum %s", req.Quantity, f.MinQty))
		}
	}

	if len(problems) > 0 {
		return model.NewValidationError(problems...)
	}
	return nil
}

func onStep(v, step decimal.Decimal) bool {
	if !step.IsPositive() {
		return true
	}
	return v.Mod(step).IsZero()
}
