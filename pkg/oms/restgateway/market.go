package restgateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

const (
	tickerEndpoint       = "/fapi/v1/ticker/price"
	exchangeInfoEndpoint = "/fapi/v1/exchangeInfo"
	accountEndpoint      = "/fapi/v2/account"
)

type tickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	v := url.Values{}
	v.Set("symbol", symbol)

	var tp tickerPrice
	if err := c.do(ctx, http.MethodGet, tickerEndpoint, v, false, &tp); err != nil {
		return decimal.Zero, err
	}
	return tp.Price, nil
}

type exchangeInfo struct {
	Symbols []model.SymbolInfo `json:"symbols"`
}

func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (*model.SymbolInfo, error) {
	var info exchangeInfo
	if err := c.do(ctx, http.MethodGet, exchangeInfoEndpoint, nil, false, &info); err != nil {
		return nil, err
	}
	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			return &info.Symbols[i], nil
		}
	}
	return nil, &model.NotFoundError{Kind: "symbol", ID: symbol}
}

func (c *Client) GetAccountInfo(ctx context.Context) (*model.AccountInfo, error) {
	info := &model.AccountInfo{}
	if err := c.do(ctx, http.MethodGet, accountEndpoint, nil, true, info); err != nil {
		return nil, err
	}
	return info, nil
}
