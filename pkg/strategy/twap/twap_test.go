package twap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/omstest"
	"github.com/joripage/futures-bot/pkg/oms/registry"
	"github.com/shopspring/decimal"
)

func newEngine(gw *omstest.FakeGateway) (*Engine, *omstest.InstantClock) {
	clock := omstest.NewInstantClock(time.Unix(1700000000, 0))
	reg := registry.NewInMemoryRegistry()
	o := oms.NewOMS(gw, logging.NewNopLogger(), oms.WithRegistry(reg))
	return NewEngine(o, reg, logging.NewNopLogger(), WithClock(clock)), clock
}

func waitDone(t *testing.T, e *Engine, id string) model.TWAPSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := e.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return snap
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name         string
		total        string
		duration     int
		chunks       int
		wantChunks   int
		wantSize     string
		wantInterval time.Duration
	}{
		{"explicit chunks", "0.1", 10, 10, 10, "0.01", time.Minute},
		{"default below cap", "5", 5, 0, 5, "1", time.Minute},
		{"default capped", "1", 30, 0, 20, "0.05", 90 * time.Second},
		{"fractional size", "1", 3, 3, 3, "0.33333333", time.Minute},
		{"size truncated not rounded up", "0.00000015", 10, 10, 10, "0.00000001", time.Minute},
		{"too small to split", "0.00000001", 20, 0, 20, "0", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, size, interval := Plan(decimal.RequireFromString(tt.total), tt.duration, tt.chunks)
			if n != tt.wantChunks || !size.Equal(decimal.RequireFromString(tt.wantSize)) || interval != tt.wantInterval {
				t.Errorf("Plan = %d, %s, %v; want %d, %s, %v", n, size, interval, tt.wantChunks, tt.wantSize, tt.wantInterval)
			}
		})
	}
}

func TestChunksAddUpToTotal(t *testing.T) {
	totals := []string{"1", "0.1", "0.00000015", "0.0000002", "123.456789", "7"}
	for _, total := range totals {
		for _, n := range []int{1, 2, 3, 7, 10, 20} {
			q := decimal.RequireFromString(total)
			_, size, _ := Plan(q, n, n)
			if !size.IsPositive() {
				continue
			}
			last := LastChunk(q, size, n)
			sum := size.Mul(decimal.NewFromInt(int64(n - 1))).Add(last)
			if !sum.Equal(q) {
				t.Errorf("total %s in %d chunks sums to %s", total, n, sum)
			}
			if last.LessThan(size) {
				t.Errorf("total %s in %d chunks: last chunk %s below size %s", total, n, last, size)
			}
		}
	}
}

func TestRunPlacesRemainderInLastChunk(t *testing.T) {
	gw := omstest.NewFakeGateway("3000")
	e, _ := newEngine(gw)

	run, err := e.Start(context.Background(), Params{Symbol: "ETHUSDT", Side: "BUY", Quantity: "0.00000015", DurationMinutes: 10, Chunks: 10})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, e, run.ID)

	placed := gw.Placed()
	if len(placed) != 10 {
		t.Fatalf("placed %d chunks", len(placed))
	}
	sum := decimal.Zero
	for _, req := range placed {
		if !req.Quantity.IsPositive() {
			t.Errorf("chunk quantity = %s", req.Quantity)
		}
		sum = sum.Add(req.Quantity)
	}
	if !sum.Equal(decimal.RequireFromString("0.00000015")) {
		t.Errorf("executed %s, want 0.00000015", sum)
	}
	if !placed[9].Quantity.Equal(decimal.RequireFromString("0.00000006")) {
		t.Errorf("last chunk = %s", placed[9].Quantity)
	}
}

func TestRunCompletes(t *testing.T) {
	gw := omstest.NewFakeGateway("3000")
	e, clock := newEngine(gw)

	run, err := e.Start(context.Background(), Params{Symbol: "ETHUSDT", Side: "BUY", Quantity: "0.1", DurationMinutes: 10, Chunks: 10})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.ID != "ETHUSDT_BUY_1700000000" {
		t.Errorf("id = %s", run.ID)
	}

	snap := waitDone(t, e, run.ID)
	if snap.Status != model.TWAPStatusCompleted || len(snap.Orders) != 10 {
		t.Fatalf("snapshot = %+v", snap)
	}
	for _, req := range gw.Placed() {
		if req.Type != model.OrderTypeMarket || req.Side != model.OrderSideBuy || !req.Quantity.Equal(decimal.RequireFromString("0.01")) {
			t.Errorf("chunk = %+v", req)
		}
	}
	waits := clock.Waits()
	if len(waits) != 9 {
		t.Fatalf("waited %d times, want 9 (no wait after last chunk)", len(waits))
	}
	for _, w := range waits {
		if w != time.Minute {
			t.Errorf("wait = %v, want 1m", w)
		}
	}
	if e.Status(run.ID).Status != model.TWAPStatusCompleted {
		t.Error("status should stay completed")
	}
}

func TestChunkFailureDoesNotAbortRun(t *testing.T) {
	gw := omstest.NewFakeGateway("3000")
	var calls int32
	gw.PlaceErr = func(model.OrderRequest) error {
		if atomic.AddInt32(&calls, 1) == 2 {
			return omstest.ErrInjected
		}
		return nil
	}
	e, _ := newEngine(gw)

	run, err := e.Start(context.Background(), Params{Symbol: "ETHUSDT", Side: "SELL", Quantity: "1", DurationMinutes: 4, Chunks: 4})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitDone(t, e, run.ID)
	if snap.Status != model.TWAPStatusCompleted || snap.ExecutedChunks != 3 || snap.FailedChunks != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStopBeforeNextChunk(t *testing.T) {
	gw := omstest.NewFakeGateway("3000")
	e, _ := newEngine(gw)

	var runID atomic.Value
	var once int32
	gw.OnPlace = func(model.OrderRequest) {
		if atomic.CompareAndSwapInt32(&once, 0, 1) {
			for runID.Load() == nil {
				time.Sleep(time.Millisecond)
			}
			if ok, err := e.Stop(context.Background(), runID.Load().(string)); !ok || err != nil {
				t.Errorf("Stop = %v, %v", ok, err)
			}
		}
	}

	run, err := e.Start(context.Background(), Params{Symbol: "BTCUSDT", Side: "BUY", Quantity: "1", DurationMinutes: 10, Chunks: 10})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	runID.Store(run.ID)

	snap := waitDone(t, e, run.ID)
	if snap.Status != model.TWAPStatusStopped {
		t.Errorf("status = %s, want stopped", snap.Status)
	}
	if len(snap.Orders) != 1 || len(gw.Placed()) != 1 {
		t.Errorf("executed %d chunks, want 1", len(snap.Orders))
	}
}

func TestStopAfterCompletionHasNoEffect(t *testing.T) {
	gw := omstest.NewFakeGateway("3000")
	e, _ := newEngine(gw)

	run, _ := e.Start(context.Background(), Params{Symbol: "BTCUSDT", Side: "BUY", Quantity: "1", DurationMinutes: 2})
	waitDone(t, e, run.ID)

	ok, err := e.Stop(context.Background(), run.ID)
	if ok || err != nil {
		t.Fatalf("Stop = %v, %v", ok, err)
	}
	if e.Status(run.ID).Status != model.TWAPStatusCompleted {
		t.Error("completed run changed status")
	}
}

func TestUnknownRun(t *testing.T) {
	e, _ := newEngine(omstest.NewFakeGateway("1"))

	if s := e.Status("nope"); s.Status != model.TWAPStatusNotFound {
		t.Errorf("status = %s", s.Status)
	}
	_, err := e.Stop(context.Background(), "nope")
	var nf *model.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Stop err = %v", err)
	}
}

func TestStartValidation(t *testing.T) {
	gw := omstest.NewFakeGateway("1")
	e, _ := newEngine(gw)

	_, err := e.Start(context.Background(), Params{Symbol: "BTCUSDT", Side: "BUY", Quantity: "1", DurationMinutes: 0, Chunks: -1})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || len(verr.Problems) != 2 {
		t.Fatalf("err = %v", err)
	}
	if len(gw.Placed()) != 0 {
		t.Error("order reached the gateway")
	}

	_, err = e.Start(context.Background(), Params{Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.00000001", DurationMinutes: 30})
	if !errors.As(err, &verr) {
		t.Fatalf("tiny total err = %v, want ValidationError", err)
	}
	if len(gw.Placed()) != 0 || len(e.List()) != 0 {
		t.Error("a run too small to split was started")
	}
}

func TestSameSecondRunsGetDistinctIDs(t *testing.T) {
	gw := omstest.NewFakeGateway("1")
	e, _ := newEngine(gw)

	// single-chunk runs never wait, so the clock stays on the same second
	a, err := e.Start(context.Background(), Params{Symbol: "BTCUSDT", Side: "BUY", Quantity: "1", DurationMinutes: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, e, a.ID)
	b, err := e.Start(context.Background(), Params{Symbol: "BTCUSDT", Side: "BUY", Quantity: "1", DurationMinutes: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, e, b.ID)
	if a.ID == b.ID {
		t.Fatalf("ids collide: %s", a.ID)
	}
}
