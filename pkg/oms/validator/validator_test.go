package validator

import (
	"errors"
	"testing"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"BTCUSDT", true},
		{"btcusdt", true},
		{"ETHUSDT", true},
		{"ABCDEFGHIJUSDT", true},
		{"AUSDT", false},
		{"ABCDEFGHIJKUSDT", false},
		{"BTCUSD", false},
		{"BTC1USDT", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			if got := ValidateSymbol(tt.symbol); got != tt.want {
				t.Errorf("ValidateSymbol(%q) = %v, want %v", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestValidateQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0.001", true},
		{"1", true},
		{"0.00000001", true},
		{"1e-8", true},
		{"0", false},
		{"0.000", false},
		{"-1", false},
		{"abc", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateQuantity(tt.in); got != tt.want {
			t.Errorf("ValidateQuantity(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if got := ValidatePrice(tt.in); got != tt.want {
			t.Errorf("ValidatePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateEnums(t *testing.T) {
	for _, s := range []string{"BUY", "sell"} {
		if !ValidateSide(s) {
			t.Errorf("side %q rejected", s)
		}
	}
	if ValidateSide("HOLD") {
		t.Error("side HOLD accepted")
	}
	for _, tif := range []string{"GTC", "IOC", "FOK", "GTX"} {
		if !ValidateTimeInForce(tif) {
			t.Errorf("tif %q rejected", tif)
		}
	}
	if ValidateTimeInForce("DAY") {
		t.Error("tif DAY accepted")
	}
	for _, ot := range []string{"MARKET", "LIMIT", "STOP", "STOP_MARKET", "TAKE_PROFIT", "TAKE_PROFIT_MARKET"} {
		if !ValidateOrderType(ot) {
			t.Errorf("order type %q rejected", ot)
		}
	}
	if ValidateOrderType("ICEBERG") {
		t.Error("order type ICEBERG accepted")
	}
}

func TestValidateBasicOrderCollectsAllProblems(t *testing.T) {
	problems := ValidateBasicOrder("BTC", "HOLD", "-1")
	want := []string{
		"Invalid symbol format: BTC",
		"Invalid side: HOLD. Must be BUY or SELL",
		"Invalid quantity: -1. Must be positive number",
	}
	if len(problems) != len(want) {
		t.Fatalf("got %d problems, want %d: %v", len(problems), len(want), problems)
	}
	for i := range want {
		if problems[i] != want[i] {
			t.Errorf("problem %d = %q, want %q", i, problems[i], want[i])
		}
	}
}

func TestValidateLimitOrder(t *testing.T) {
	if p := ValidateLimitOrder("BTCUSDT", "BUY", "0.01", "45000"); len(p) != 0 {
		t.Fatalf("unexpected problems: %v", p)
	}
	p := ValidateLimitOrder("BTCUSDT", "BUY", "0.01", "0")
	if len(p) != 1 || p[0] != "Invalid price: 0. Must be positive number" {
		t.Fatalf("unexpected problems: %v", p)
	}
}

func TestCheck(t *testing.T) {
	if err := Check(nil); err != nil {
		t.Fatalf("Check(nil) = %v", err)
	}
	err := Check([]string{"a", "b"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("problems = %v", verr.Problems)
	}
}
