package riskrule

import (
	"context"
	"fmt"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// QuantityLimitRule bounds the size of a single order. A zero bound is not enforced.
type QuantityLimitRule struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (r *QuantityLimitRule) Check(_ context.Context, req *model.OrderRequest) error {
	if !r.Min.IsZero() && req.Quantity.LessThan(r.Min) {
		return model.NewValidationError(fmt.Sprintf("Quantity %s below minimum order size %s", req.Quantity, r.Min))
	}
	if !r.Max.IsZero() && req.Quantity.GreaterThan(r.Max) {
		return model.NewValidationError(fmt.Sprintf("Quantity %s above maximum order size %s", req.Quantity, r.Max))
	}
	return nil
}
