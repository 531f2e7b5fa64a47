package restgateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

const orderEndpoint = "/fapi/v1/order"

func orderParams(req model.OrderRequest) url.Values {
	v := url.Values{}
	v.Set("symbol", req.Symbol)
	v.Set("side", string(req.Side))
	v.Set("type", string(req.Type))
	v.Set("quantity", req.Quantity.String())
	if !req.Price.IsZero() {
		v.Set("price", req.Price.String())
	}
	if !req.StopPrice.IsZero() {
		v.Set("stopPrice", req.StopPrice.String())
	}
	if req.TimeInForce != "" {
		v.Set("timeInForce", string(req.TimeInForce))
	}
	if req.ClientOrderID != "" {
		v.Set("newClientOrderId", req.ClientOrderID)
	}
	return v
}

func (c *Client) PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.OrderReport, error) {
	report := &model.OrderReport{}
	if err := c.do(ctx, http.MethodPost, orderEndpoint, orderParams(req), true, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error) {
	v := url.Values{}
	v.Set("symbol", symbol)
	v.Set("orderId", strconv.FormatInt(orderID, 10))

	report := &model.OrderReport{}
	if err := c.do(ctx, http.MethodDelete, orderEndpoint, v, true, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, symbol string, orderID int64) (*model.OrderReport, error) {
	v := url.Values{}
	v.Set("symbol", symbol)
	v.Set("orderId", strconv.FormatInt(orderID, 10))

	report := &model.OrderReport{}
	if err := c.do(ctx, http.MethodGet, orderEndpoint, v, true, report); err != nil {
		return nil, err
	}
	return report, nil
}
