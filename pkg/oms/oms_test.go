package oms

import (
	"context"
	"errors"
	"testing"

	"github.com/joripage/futures-bot/pkg/journal"
	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/omstest"
	riskrule "github.com/joripage/futures-bot/pkg/oms/risk_rule"
	"github.com/shopspring/decimal"
)

func newTestOMS(gw *omstest.FakeGateway, opts ...Option) (*OMS, *journal.MemorySink) {
	sink := journal.NewMemorySink(100)
	opts = append([]Option{WithJournal(sink)}, opts...)
	return NewOMS(gw, logging.NewNopLogger(), opts...), sink
}

func TestPlaceMarketOrder(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	s, sink := newTestOMS(gw)

	p, err := s.PlaceMarketOrder(context.Background(), MarketOrderParams{Symbol: "btcusdt", Side: "buy", Quantity: "0.01"})
	if err != nil {
		t.Fatalf("PlaceMarketOrder: %v", err)
	}
	placed := gw.Placed()
	if len(placed) != 1 {
		t.Fatalf("placed %d orders, want 1", len(placed))
	}
	req := placed[0]
	if req.Symbol != "BTCUSDT" || req.Side != model.OrderSideBuy || req.Type != model.OrderTypeMarket {
		t.Errorf("request = %+v", req)
	}
	if req.ClientOrderID == "" {
		t.Error("client order id not set")
	}
	if !p.MarketPrice.Valid || !p.MarketPrice.Decimal.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("market price = %+v", p.MarketPrice)
	}
	if _, ok := s.Registry().GetOrder(p.Handle.OrderID); !ok {
		t.Error("handle not tracked")
	}
	events := sink.Recent(0)
	if len(events) != 1 || events[0].Kind != model.OrderEventPlaced {
		t.Errorf("journal = %+v", events)
	}
}

func TestValidationHappensBeforeNetwork(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	s, _ := newTestOMS(gw)

	_, err := s.PlaceMarketOrder(context.Background(), MarketOrderParams{Symbol: "BTC", Side: "HOLD", Quantity: "0"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 3 {
		t.Errorf("problems = %v", verr.Problems)
	}
	if len(gw.Placed()) != 0 {
		t.Error("order reached the gateway")
	}
}

func TestLimitOrderTimeInForce(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	s, _ := newTestOMS(gw)

	_, err := s.PlaceLimitOrder(context.Background(), LimitOrderParams{
		Symbol: "BTCUSDT", Side: "SELL", Quantity: "0.01", Price: "46000", TimeInForce: "DAY",
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	p, err := s.PlaceLimitOrder(context.Background(), LimitOrderParams{
		Symbol: "BTCUSDT", Side: "SELL", Quantity: "0.01", Price: "46000",
	})
	if err != nil {
		t.Fatalf("PlaceLimitOrder: %v", err)
	}
	if p.Handle.Request.TimeInForce != model.OrderTimeInForceGTC || !p.Handle.Request.Price.Equal(decimal.NewFromInt(46000)) {
		t.Errorf("request = %+v", p.Handle.Request)
	}
}

func TestTickerFailureDoesNotBlockOrder(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	gw.TickerErr = errors.New("ticker down")
	s, _ := newTestOMS(gw)

	p, err := s.PlaceMarketOrder(context.Background(), MarketOrderParams{Symbol: "BTCUSDT", Side: "SELL", Quantity: "1"})
	if err != nil {
		t.Fatalf("PlaceMarketOrder: %v", err)
	}
	if p.MarketPrice.Valid {
		t.Error("market price should be invalid")
	}
}

func TestGatewayFailureIsJournaledNotRetried(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	apiErr := &model.APIError{Method: "POST", Endpoint: "/fapi/v1/order", StatusCode: 400, Code: -2019, Message: "Margin is insufficient."}
	calls := 0
	gw.PlaceErr = func(model.OrderRequest) error {
		calls++
		return apiErr
	}
	s, sink := newTestOMS(gw)

	_, err := s.PlaceMarketOrder(context.Background(), MarketOrderParams{Symbol: "BTCUSDT", Side: "BUY", Quantity: "1"})
	if !errors.Is(err, apiErr) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("placement attempted %d times, want 1", calls)
	}
	events := sink.Recent(0)
	if len(events) != 1 || events[0].Kind != model.OrderEventPlaceFailed || events[0].Error == "" {
		t.Errorf("journal = %+v", events)
	}
}

func TestRulesRejectBeforeGateway(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	s, _ := newTestOMS(gw, WithRules(&riskrule.QuantityLimitRule{Max: decimal.NewFromInt(1)}))

	_, err := s.PlaceMarketOrder(context.Background(), MarketOrderParams{Symbol: "BTCUSDT", Side: "BUY", Quantity: "2"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(gw.Placed()) != 0 {
		t.Error("order reached the gateway")
	}
}

func TestRuleLookupFailureIsWrapped(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	boom := errors.New("exchangeInfo down")
	rule := riskrule.NewTickSizeRule(func(context.Context, string) (*model.SymbolInfo, error) { return nil, boom })
	s, _ := newTestOMS(gw, WithRules(rule))

	_, err := s.PlaceMarketOrder(context.Background(), MarketOrderParams{Symbol: "BTCUSDT", Side: "BUY", Quantity: "1"})
	if !errors.Is(err, boom) || !errors.Is(err, errRuleFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	s, sink := newTestOMS(gw)

	p, err := s.PlaceLimitOrder(context.Background(), LimitOrderParams{Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.01", Price: "44000"})
	if err != nil {
		t.Fatalf("PlaceLimitOrder: %v", err)
	}
	report, err := s.CancelOrder(context.Background(), "btcusdt", p.Handle.OrderID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if report.Status != model.OrderStatusCanceled || p.Handle.Status != model.OrderStatusCanceled {
		t.Errorf("report %s, handle %s", report.Status, p.Handle.Status)
	}
	if events := sink.Recent(0); events[len(events)-1].Kind != model.OrderEventCanceled {
		t.Errorf("journal = %+v", events)
	}

	_, err = s.CancelOrder(context.Background(), "BTCUSDT", 0)
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = s.CancelOrder(context.Background(), "BTCUSDT", 999)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestOrderStatus(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	s, _ := newTestOMS(gw)

	p, _ := s.PlaceLimitOrder(context.Background(), LimitOrderParams{Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.01", Price: "44000"})
	gw.Fill(p.Handle.OrderID, "43990")

	report, err := s.OrderStatus(context.Background(), "BTCUSDT", p.Handle.OrderID)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if report.Status != model.OrderStatusFilled || !report.AvgPrice.Equal(decimal.NewFromInt(43990)) {
		t.Errorf("report = %+v", report)
	}
}
