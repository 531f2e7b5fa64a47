package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_orders_placed_total",
			Help: "Orders accepted by the exchange, by strategy kind and side.",
		},
		[]string{"strategy", "side", "type"},
	)

	OrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_order_failures_total",
			Help: "Failed exchange order operations, by strategy kind and operation.",
		},
		[]string{"strategy", "op"},
	)

	OrdersCanceled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_orders_canceled_total",
			Help: "Orders canceled on the exchange, by strategy kind.",
		},
		[]string{"strategy"},
	)

	ActiveStrategies = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_active_strategies",
			Help: "Running TWAP runs and deployed grids.",
		},
		[]string{"kind"},
	)

	GridRebalances = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "futures_grid_rebalance_orders_total",
			Help: "Counter-orders placed after grid fills.",
		},
	)
)

func init() {
	prometheus.MustRegister(OrdersPlaced, OrderFailures, OrdersCanceled, ActiveStrategies, GridRebalances)
}

// StrategyKind extracts the label used for a strategy id such as BTCUSDT_grid_1700000000.
func StrategyKind(strategyID string) string {
	switch {
	case strategyID == "":
		return "single"
	case strings.Contains(strategyID, "_grid_"):
		return "grid"
	case strings.Contains(strategyID, "_oco_"):
		return "oco"
	case strings.Contains(strategyID, "_BUY_"), strings.Contains(strategyID, "_SELL_"):
		return "twap"
	}
	return "other"
}

