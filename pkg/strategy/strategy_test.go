package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

func TestRegisterSuffixesTakenIDs(t *testing.T) {
	taken := map[string]bool{"BTCUSDT_grid_100": true, "BTCUSDT_grid_100_2": true}
	id, err := Register(BaseID("BTCUSDT", "grid", time.Unix(100, 0)), func(id string) error {
		if taken[id] {
			return model.ErrDuplicateID
		}
		return nil
	})
	if err != nil || id != "BTCUSDT_grid_100_3" {
		t.Fatalf("Register = %q, %v", id, err)
	}
}

func TestRegisterPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Register("x", func(string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestBatchReportErr(t *testing.T) {
	var r BatchReport
	r.Succeeded = 2
	if r.Err("grid.stop") != nil {
		t.Fatal("no failures should give nil")
	}
	boom := errors.New("boom")
	r.Fail("order 7", boom)

	err := r.Err("grid.stop")
	var pf *model.PartialFailure
	if !errors.As(err, &pf) || pf.Succeeded != 2 || len(pf.Failures) != 1 {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("partial failure should unwrap to the item error")
	}
}
