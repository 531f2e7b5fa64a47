package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/omstest"
	"github.com/joripage/futures-bot/pkg/oms/registry"
	"github.com/joripage/futures-bot/pkg/strategy/grid"
	"github.com/shopspring/decimal"
)

func newGridApp(gw *omstest.FakeGateway) *app {
	logger := logging.NewNopLogger()
	reg := registry.NewInMemoryRegistry()
	o := oms.NewOMS(gw, logger, oms.WithRegistry(reg))
	return &app{logger: logger, oms: o, grid: grid.NewEngine(o, reg, logger)}
}

func TestRunGridPartialDeployFails(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	gw.PlaceErr = func(req model.OrderRequest) error {
		if req.Price.Equal(decimal.RequireFromString("44000")) {
			return omstest.ErrInjected
		}
		return nil
	}
	a := newGridApp(gw)

	var buf bytes.Buffer
	err := runGrid(context.Background(), a, &buf, []string{"BTCUSDT", "44000", "46000", "5", "1000"})
	var pf *model.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want PartialFailure", err)
	}
	if !strings.Contains(buf.String(), "(1 levels failed)") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunGridDeploysCleanly(t *testing.T) {
	gw := omstest.NewFakeGateway("45000")
	a := newGridApp(gw)

	var buf bytes.Buffer
	if err := runGrid(context.Background(), a, &buf, []string{"BTCUSDT", "44000", "46000", "5", "1000"}); err != nil {
		t.Fatalf("runGrid: %v", err)
	}
	if len(gw.Placed()) != 4 {
		t.Errorf("placed %d orders", len(gw.Placed()))
	}
}
