package riskrule

import (
	"context"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

// RiskRule rejects an order before it is sent. A violation is reported as a validation problem.
type RiskRule interface {
	Check(ctx context.Context, req *model.OrderRequest) error
}
