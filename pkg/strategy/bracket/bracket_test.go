package bracket

import (
	"context"
	"errors"
	"testing"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/omstest"
	"github.com/shopspring/decimal"
)

func newEngine(gw *omstest.FakeGateway) *Engine {
	return NewEngine(oms.NewOMS(gw, logging.NewNopLogger()), logging.NewNopLogger())
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPlaceLongBracket(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	e := newEngine(gw)

	g, err := e.Place(context.Background(), Params{
		Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.01", TakeProfitPrice: "46000", StopPrice: "44000",
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	placed := gw.Placed()
	if len(placed) != 2 {
		t.Fatalf("placed %d orders, want 2", len(placed))
	}
	tp, sl := placed[0], placed[1]
	if tp.Side != model.OrderSideSell || tp.Type != model.OrderTypeLimit || !tp.Price.Equal(d("46000")) || tp.TimeInForce != model.OrderTimeInForceGTC {
		t.Errorf("take profit = %+v", tp)
	}
	if sl.Side != model.OrderSideSell || sl.Type != model.OrderTypeStop || !sl.StopPrice.Equal(d("44000")) || !sl.Price.Equal(d("44000")) {
		t.Errorf("stop loss = %+v", sl)
	}
	if g.TakeProfit == nil || g.StopLoss == nil {
		t.Fatalf("group = %+v", g)
	}
	if !g.ReferencePrice.Equal(d("45000")) {
		t.Errorf("reference = %s", g.ReferencePrice)
	}
}

func TestPlaceShortBracketWithStopLimit(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	e := newEngine(gw)

	_, err := e.Place(context.Background(), Params{
		Symbol: "ETHUSDT", Side: "sell", Quantity: "1", TakeProfitPrice: "2000", StopPrice: "2500", StopLimitPrice: "2510",
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	placed := gw.Placed()
	if placed[0].Side != model.OrderSideBuy || placed[1].Side != model.OrderSideBuy {
		t.Errorf("exit legs should be BUY: %+v", placed)
	}
	if !placed[1].Price.Equal(d("2510")) || !placed[1].StopPrice.Equal(d("2500")) {
		t.Errorf("stop leg = %+v", placed[1])
	}
}

func TestPlaceValidatesStopPrice(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	e := newEngine(gw)

	_, err := e.Place(context.Background(), Params{
		Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.01", TakeProfitPrice: "46000", StopPrice: "-5",
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || len(verr.Problems) != 1 || verr.Problems[0] != "Invalid stop price: -5" {
		t.Fatalf("err = %v", err)
	}
	if len(gw.Placed()) != 0 {
		t.Error("order reached the gateway")
	}
}

func TestPlaceHalfPlaced(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	rejected := &model.APIError{StatusCode: 400, Code: -2021, Message: "Order would immediately trigger."}
	gw.PlaceErr = func(req model.OrderRequest) error {
		if req.Type == model.OrderTypeStop {
			return rejected
		}
		return nil
	}
	e := newEngine(gw)

	g, err := e.Place(context.Background(), Params{
		Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.01", TakeProfitPrice: "46000", StopPrice: "44000",
	})
	var pf *model.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if pf.Succeeded != 1 || len(pf.Failures) != 1 || pf.Failures[0].Item != "stop_loss" {
		t.Errorf("partial failure = %+v", pf)
	}
	if !errors.Is(err, rejected) {
		t.Error("partial failure should wrap the API error")
	}
	if g == nil || g.TakeProfit == nil || g.StopLoss != nil {
		t.Fatalf("group = %+v", g)
	}
	if len(gw.Cancelled()) != 0 {
		t.Error("successful leg must not be compensated")
	}
}

func TestTickerFailureIsInformational(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	gw.TickerErr = errors.New("down")
	e := newEngine(gw)

	g, err := e.Place(context.Background(), Params{
		Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.01", TakeProfitPrice: "46000", StopPrice: "44000",
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if !g.ReferencePrice.IsZero() {
		t.Errorf("reference = %s", g.ReferencePrice)
	}
}

func TestCancelIsBestEffort(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	e := newEngine(gw)
	g, _ := e.Place(context.Background(), Params{
		Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.01", TakeProfitPrice: "46000", StopPrice: "44000",
	})
	gw.CancelErr[g.TakeProfit.OrderID] = omstest.ErrInjected

	report, err := e.Cancel(context.Background(), "BTCUSDT", []int64{g.TakeProfit.OrderID, g.StopLoss.OrderID})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if report.Succeeded != 1 || len(report.Cancelled) != 1 || report.Cancelled[0].OrderID != g.StopLoss.OrderID {
		t.Errorf("report = %+v", report)
	}
	if !errors.Is(report.Err("bracket.cancel"), omstest.ErrInjected) {
		t.Errorf("report err = %v", report.Err("bracket.cancel"))
	}
}
