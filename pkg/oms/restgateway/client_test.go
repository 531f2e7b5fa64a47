package restgateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

const (
	testKey    = "test-key"
	testSecret = "test-secret"
)

var fixedNow = time.UnixMilli(1700000000123)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: testKey, APISecret: testSecret, BaseURL: srv.URL},
		logging.NewNopLogger(), WithClock(func() time.Time { return fixedNow }))
}

// verifySignature checks that the trailing signature matches the HMAC of everything before it.
func verifySignature(t *testing.T, payload string) url.Values {
	t.Helper()
	idx := strings.LastIndex(payload, "&signature=")
	if idx < 0 {
		t.Fatalf("payload has no signature: %q", payload)
	}
	signed, sig := payload[:idx], payload[idx+len("&signature="):]
	if want := Sign([]byte(testSecret), signed); sig != want {
		t.Fatalf("signature = %s, want %s", sig, want)
	}
	v, err := url.ParseQuery(signed)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if v.Get("timestamp") != "1700000000123" {
		t.Errorf("timestamp = %s", v.Get("timestamp"))
	}
	return v
}

func TestSignKnownVector(t *testing.T) {
	secret := []byte("NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j")
	payload := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	want := "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71"
	if got := Sign(secret, payload); got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestPlaceOrderPostsSignedForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != orderEndpoint {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(apiKeyHeader) != testKey {
			t.Errorf("api key header = %q", r.Header.Get(apiKeyHeader))
		}
		if r.URL.RawQuery != "" {
			t.Errorf("POST should not carry a query, got %q", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		v := verifySignature(t, string(body))
		if v.Get("symbol") != "BTCUSDT" || v.Get("side") != "BUY" || v.Get("type") != "LIMIT" {
			t.Errorf("unexpected params: %v", v)
		}
		if v.Get("quantity") != "0.01" || v.Get("price") != "45000" || v.Get("timeInForce") != "GTC" {
			t.Errorf("unexpected params: %v", v)
		}
		if v.Has("stopPrice") {
			t.Errorf("zero stop price should be omitted")
		}
		_, _ = io.WriteString(w, `{"orderId":42,"clientOrderId":"abc","symbol":"BTCUSDT","status":"NEW",
			"side":"BUY","type":"LIMIT","price":"45000","avgPrice":"0.00","origQty":"0.01","executedQty":"0","updateTime":1700000000200}`)
	})

	report, err := c.PlaceOrder(context.Background(), model.OrderRequest{
		Symbol:      "BTCUSDT",
		Side:        model.OrderSideBuy,
		Type:        model.OrderTypeLimit,
		Quantity:    decimal.RequireFromString("0.01"),
		Price:       decimal.RequireFromString("45000"),
		TimeInForce: model.OrderTimeInForceGTC,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if report.OrderID != 42 || report.Status != model.OrderStatusNew {
		t.Errorf("report = %+v", report)
	}
	if !report.Price.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("price = %s", report.Price)
	}
}

func TestCancelOrderSignsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		v := verifySignature(t, r.URL.RawQuery)
		if v.Get("orderId") != "7" || v.Get("symbol") != "ETHUSDT" {
			t.Errorf("unexpected params: %v", v)
		}
		_, _ = io.WriteString(w, `{"orderId":7,"symbol":"ETHUSDT","status":"CANCELED"}`)
	})

	report, err := c.CancelOrder(context.Background(), "ETHUSDT", 7)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if report.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s", report.Status)
	}
}

func TestGetOrderStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		verifySignature(t, r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"orderId":9,"symbol":"BTCUSDT","status":"FILLED","avgPrice":"44010.5","executedQty":"0.01"}`)
	})

	report, err := c.GetOrderStatus(context.Background(), "BTCUSDT", 9)
	if err != nil {
		t.Fatalf("GetOrderStatus: %v", err)
	}
	if report.Status != model.OrderStatusFilled || !report.AvgPrice.Equal(decimal.RequireFromString("44010.5")) {
		t.Errorf("report = %+v", report)
	}
}

func TestRecvWindowIsSigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := verifySignature(t, r.URL.RawQuery)
		if v.Get("recvWindow") != "5000" {
			t.Errorf("recvWindow = %q", v.Get("recvWindow"))
		}
		_, _ = io.WriteString(w, `{"totalWalletBalance":"100.5","availableBalance":"90","assets":[],"positions":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: testKey, APISecret: testSecret, BaseURL: srv.URL, RecvWindow: 5000},
		logging.NewNopLogger(), WithClock(func() time.Time { return fixedNow }))
	info, err := c.GetAccountInfo(context.Background())
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if !info.TotalWalletBalance.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("wallet = %s", info.TotalWalletBalance)
	}
}

func TestErrorResponseBecomesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":-2011,"msg":"Unknown order sent."}`)
	})

	_, err := c.CancelOrder(context.Background(), "BTCUSDT", 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != -2011 || apiErr.Message != "Unknown order sent." {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Endpoint != orderEndpoint || apiErr.Method != http.MethodDelete {
		t.Errorf("endpoint = %s %s", apiErr.Method, apiErr.Endpoint)
	}
	if apiErr.Params["symbol"] != "BTCUSDT" || apiErr.Params["orderId"] != "1" {
		t.Errorf("params = %v", apiErr.Params)
	}
	if _, ok := apiErr.Params["signature"]; ok {
		t.Errorf("signature leaked into error params")
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway")
	})

	_, err := c.GetTickerPrice(context.Background(), "BTCUSDT")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "bad gateway" {
		t.Fatalf("err = %v", err)
	}
}

func TestTransportFailureBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(Config{APIKey: testKey, APISecret: testSecret, BaseURL: base}, logging.NewNopLogger())
	_, err := c.PlaceOrder(context.Background(), model.OrderRequest{
		Symbol: "BTCUSDT", Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Quantity: decimal.NewFromInt(1),
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != 0 || apiErr.Err == nil {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestTickerIsUnsigned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tickerEndpoint {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Has("signature") || r.Header.Get(apiKeyHeader) != "" {
			t.Errorf("ticker request should not be signed")
		}
		_, _ = io.WriteString(w, `{"symbol":"BTCUSDT","price":"45123.40","time":1}`)
	})

	price, err := c.GetTickerPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetTickerPrice: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("45123.4")) {
		t.Errorf("price = %s", price)
	}
}

func TestGetSymbolInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"symbols":[
			{"symbol":"ETHUSDT","status":"TRADING"},
			{"symbol":"BTCUSDT","status":"TRADING","pricePrecision":2,"quantityPrecision":3,
			 "filters":[{"filterType":"PRICE_FILTER","tickSize":"0.10","minPrice":"556.80","maxPrice":"4529764"},
			            {"filterType":"LOT_SIZE","stepSize":"0.001","minQty":"0.001","maxQty":"1000"}]}]}`)
	})

	info, err := c.GetSymbolInfo(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetSymbolInfo: %v", err)
	}
	lot, ok := info.Filter(model.FilterLotSize)
	if !ok || !lot.StepSize.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("lot filter = %+v", lot)
	}

	_, err = c.GetSymbolInfo(context.Background(), "DOGEUSDT")
	var nf *model.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
